package emailjs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	client := NewClient(Config{
		Endpoint:   srv.URL,
		ServiceID:  "service_1",
		TemplateID: "template_1",
		PublicKey:  "public",
		PrivateKey: "private",
	})
	err := client.Send(context.Background(), map[string]string{
		"name":      "Ada",
		"email":     "ada@example.com",
		"bookTitle": "Dune",
		"reason":    "book club",
	})
	require.NoError(t, err)

	assert.Equal(t, "service_1", got["service_id"])
	assert.Equal(t, "template_1", got["template_id"])
	assert.Equal(t, "public", got["user_id"])
	assert.Equal(t, "private", got["accessToken"])
	assert.Equal(t, map[string]any{
		"name":      "Ada",
		"email":     "ada@example.com",
		"bookTitle": "Dune",
		"reason":    "book club",
	}, got["template_params"])
}

func TestClient_SendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("The template ID is invalid"))
	}))
	defer srv.Close()

	client := NewClient(Config{Endpoint: srv.URL, ServiceID: "s", TemplateID: "t", PublicKey: "p"})
	err := client.Send(context.Background(), map[string]string{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "template ID")
}

func TestClient_NotConfigured(t *testing.T) {
	err := NewClient(Config{Endpoint: "http://unused"}).Send(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_OmitsEmptyAccessToken(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	client := NewClient(Config{Endpoint: srv.URL, ServiceID: "s", TemplateID: "t", PublicKey: "p"})
	require.NoError(t, client.Send(context.Background(), map[string]string{"name": "x"}))
	assert.NotContains(t, got, "accessToken")
}
