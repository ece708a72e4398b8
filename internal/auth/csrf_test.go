package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCSRFKey = []byte("0123456789abcdef0123456789abcdef")

func csrfRouter(service *Service, hits *int) *gin.Engine {
	r := gin.New()
	r.Use(CSRFMiddleware(testCSRFKey, false, []string{"http://localhost:5173"}, service))
	r.GET("/api/books", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"token": GetCSRFToken(c)})
	})
	r.POST("/api/requests", func(c *gin.Context) {
		*hits++
		c.Status(http.StatusCreated)
	})
	return r
}

func TestCSRFMiddleware(t *testing.T) {
	svc, _ := setupAuth(t)
	hits := 0
	r := csrfRouter(svc, &hits)

	get := httptest.NewRecorder()
	r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/books", nil))
	require.Equal(t, http.StatusOK, get.Code)
	token := get.Header().Get(CSRFTokenHeader)
	require.NotEmpty(t, token)
	assert.Contains(t, get.Body.String(), token)
	cookies := get.Result().Cookies()
	require.NotEmpty(t, cookies)

	t.Run("unsafe request without token is rejected", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/requests", nil))
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Contains(t, rr.Body.String(), "CSRF")
		assert.Zero(t, hits)
	})

	t.Run("unsafe request with token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/requests", nil)
		req.Header.Set(CSRFTokenHeader, token)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, 1, hits)
	})
}

func TestCSRFMiddleware_BearerExempt(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()
	user, err := svc.CreateUser(ctx, "reader", "reader@example.com", testPassword)
	require.NoError(t, err)
	token, err := svc.GenerateToken(ctx, user.ID)
	require.NoError(t, err)

	hits := 0
	r := csrfRouter(svc, &hits)

	req := httptest.NewRequest(http.MethodPost, "/api/requests", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 1, hits)

	req = httptest.NewRequest(http.MethodPost, "/api/requests", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, 1, hits)
}

func TestOriginHosts(t *testing.T) {
	got := originHosts([]string{"http://localhost:5173", "https://shelf.example.com", "not a url", ""})
	assert.Equal(t, []string{"localhost:5173", "shelf.example.com"}, got)
}
