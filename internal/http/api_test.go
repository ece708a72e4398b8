package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelf/internal/catalog"
	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/database/books"
	dbrecords "github.com/mrlokans/shelf/internal/database/records"
	dbrequests "github.com/mrlokans/shelf/internal/database/requests"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/highlights"
	"github.com/mrlokans/shelf/internal/reader"
	"github.com/mrlokans/shelf/internal/records"
	"github.com/mrlokans/shelf/internal/requests"
)

type sentMail struct {
	params []map[string]string
}

func (s *sentMail) Send(_ context.Context, params map[string]string) error {
	s.params = append(s.params, params)
	return nil
}

// failingUpdates lets reads and creates through and fails every update.
type failingUpdates struct {
	records.Store
}

func (failingUpdates) Update(context.Context, records.Key, records.Update) error {
	return errors.New("store unavailable")
}

type apiFixture struct {
	router *gin.Engine
	book   entities.Book
	mail   *sentMail
}

func setupAPI(t *testing.T, wrap func(records.Store) records.Store) apiFixture {
	t.Helper()
	db, err := database.NewQuietDatabase(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	bookRepo := books.NewRepository(db.DB)
	book := entities.Book{Title: "Dune", Author: "Frank Herbert", Category: "Sci-Fi", URL: "https://cdn.example.com/dune.pdf", PageCount: 10}
	require.NoError(t, bookRepo.UpsertBook(ctx, &book))
	other := entities.Book{Title: "Anathem", Author: "Neal Stephenson", Category: "Sci-Fi", URL: "https://cdn.example.com/anathem.pdf"}
	require.NoError(t, bookRepo.UpsertBook(ctx, &other))

	var store records.Store = dbrecords.NewRepository(db.DB)
	cat := catalog.NewService(bookRepo, store, 0)
	if wrap != nil {
		store = wrap(store)
	}
	rdr := reader.NewService(cat, store, config.Highlights{
		DefaultColor: config.DefaultHighlightColor,
		SyncMode:     config.SyncModeReplace,
	})
	mail := &sentMail{}
	reqs := requests.NewService(dbrequests.NewRepository(db.DB), mail, config.Requests{MaxAttempts: 3})

	router := NewRouter(RouterConfig{
		Catalog:        cat,
		Reader:         rdr,
		Requests:       reqs,
		Health:         map[string]Pinger{"database": db},
		Version:        "test",
		AuthConfig:     config.Auth{Mode: config.AuthModeNone},
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	return apiFixture{router: router, book: book, mail: mail}
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func capturePayload() CaptureRequest {
	return CaptureRequest{
		Text:      "  the spice must flow  ",
		Selection: highlights.Rect{Top: 150, Left: 80, Width: 200, Height: 20},
		Viewport:  highlights.Rect{Top: 100, Left: 50},
		Page:      3,
		Scale:     1.4,
	}
}

func TestBooksAPI(t *testing.T) {
	f := setupAPI(t, nil)

	w := do(t, f.router, http.MethodGet, "/api/books?q=herbert", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Books []catalog.Entry `json:"books"`
		Count int             `json:"count"`
	}](t, w)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Dune", list.Books[0].Title)

	w = do(t, f.router, http.MethodGet, "/api/books?sort=desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, `(?s)Dune.*Anathem`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(t, f.router, http.MethodGet, "/api/books?sort=sideways", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, f.router, http.MethodGet, "/api/books?read=maybe", nil).Code)

	w = do(t, f.router, http.MethodGet, "/api/books/categories", nil)
	assert.JSONEq(t, `{"categories":["Sci-Fi"]}`, w.Body.String())

	assert.Equal(t, http.StatusOK, do(t, f.router, http.MethodGet, "/api/books/"+f.book.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, f.router, http.MethodGet, "/api/books/missing", nil).Code)
}

func TestReadingAPI(t *testing.T) {
	f := setupAPI(t, nil)
	base := "/api/books/" + f.book.ID + "/reading"

	w := do(t, f.router, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	session := decode[reader.Session](t, w)
	assert.True(t, session.Created)
	assert.Equal(t, 1, session.Record.Page)

	w = do(t, f.router, http.MethodPut, base+"/page", map[string]int{"page": 42})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"page":10}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(t, f.router, http.MethodPut, base+"/page", map[string]any{}).Code)

	w = do(t, f.router, http.MethodPost, base+"/read", nil)
	assert.JSONEq(t, `{"read":true}`, w.Body.String())

	w = do(t, f.router, http.MethodGet, "/api/books?read=true", nil)
	assert.Contains(t, w.Body.String(), `"count":1`)

	assert.Equal(t, http.StatusNotFound, do(t, f.router, http.MethodGet, "/api/books/missing/reading", nil).Code)
}

func TestHighlightsAPI(t *testing.T) {
	f := setupAPI(t, nil)
	base := "/api/books/" + f.book.ID + "/highlights"

	payload := capturePayload()
	payload.Note = "remember"
	payload.NoteProvided = true
	w := do(t, f.router, http.MethodPost, base, payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[HighlightsResponse](t, w)
	require.NotNil(t, created.Highlight)
	h := *created.Highlight
	assert.Equal(t, "the spice must flow", h.Text)
	assert.Equal(t, entities.Position{Top: 50, Left: 30, Width: 200, Height: 20}, h.Position)
	assert.Equal(t, "remember", h.Note)
	assert.Equal(t, config.DefaultHighlightColor, h.Color)
	assert.Empty(t, created.SyncError)
	assert.False(t, created.Dirty)
	assert.Contains(t, created.Notifications, highlights.Notification{Level: highlights.LevelSuccess, Message: "Highlights saved"})

	t.Run("list", func(t *testing.T) {
		w := do(t, f.router, http.MethodGet, base, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), h.ID)
	})

	t.Run("overlays", func(t *testing.T) {
		w := do(t, f.router, http.MethodGet, base+"?page=3&scale=2.8", nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decode[struct {
			Overlays []highlights.Overlay `json:"overlays"`
		}](t, w)
		require.Len(t, got.Overlays, 1)
		assert.Equal(t, highlights.OverlayOpacity, got.Overlays[0].Opacity)
		assert.InDelta(t, 100.0, got.Overlays[0].Position.Top, 1e-9)

		w = do(t, f.router, http.MethodGet, base+"?page=4", nil)
		assert.JSONEq(t, `{"page":4,"overlays":[]}`, w.Body.String())
	})

	t.Run("edit note", func(t *testing.T) {
		w := do(t, f.router, http.MethodPatch, base+"/"+h.ID+"/note", map[string]any{"note": nil})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "remember", decode[HighlightsResponse](t, w).Highlights[0].Note)

		w = do(t, f.router, http.MethodPatch, base+"/"+h.ID+"/note", map[string]any{"note": ""})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "", decode[HighlightsResponse](t, w).Highlights[0].Note)

		assert.Equal(t, http.StatusNotFound, do(t, f.router, http.MethodPatch, base+"/nope/note", map[string]any{"note": "x"}).Code)
	})

	t.Run("resync", func(t *testing.T) {
		w := do(t, f.router, http.MethodPost, base+"/resync", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[HighlightsResponse](t, w).Highlights, 1)
	})

	t.Run("remove", func(t *testing.T) {
		w := do(t, f.router, http.MethodDelete, base+"/"+h.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[HighlightsResponse](t, w)
		assert.Empty(t, resp.Highlights)
		assert.Contains(t, resp.Notifications, highlights.Notification{Level: highlights.LevelInfo, Message: "Highlight removed"})

		assert.Equal(t, http.StatusNotFound, do(t, f.router, http.MethodDelete, base+"/"+h.ID, nil).Code)
	})
}

func TestHighlightsAPI_CaptureValidation(t *testing.T) {
	f := setupAPI(t, nil)
	base := "/api/books/" + f.book.ID + "/highlights"

	blank := capturePayload()
	blank.Text = "   "
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, f.router, http.MethodPost, base, blank).Code)

	badColor := capturePayload()
	badColor.Color = "blue"
	assert.Equal(t, http.StatusBadRequest, do(t, f.router, http.MethodPost, base, badColor).Code)

	assert.Equal(t, http.StatusNotFound, do(t, f.router, http.MethodPost, "/api/books/missing/highlights", capturePayload()).Code)
}

func TestHighlightsAPI_SyncFailure(t *testing.T) {
	f := setupAPI(t, func(s records.Store) records.Store { return failingUpdates{s} })
	base := "/api/books/" + f.book.ID + "/highlights"

	w := do(t, f.router, http.MethodPost, base, capturePayload())
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[HighlightsResponse](t, w)
	assert.Contains(t, resp.SyncError, "store unavailable")
	assert.True(t, resp.Dirty)
	assert.Len(t, resp.Highlights, 1, "memory keeps the highlight")
	assert.Contains(t, resp.Notifications, highlights.Notification{Level: highlights.LevelError, Message: "Failed to save highlights"})

	w = do(t, f.router, http.MethodPost, base+"/resync", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotEmpty(t, decode[HighlightsResponse](t, w).SyncError)
}

func TestRequestsAPI(t *testing.T) {
	f := setupAPI(t, nil)

	w := do(t, f.router, http.MethodPost, "/api/requests", map[string]string{
		"name":      "Ada",
		"email":     "ada@example.com",
		"bookTitle": "The Analytical Engine",
		"reason":    "History",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	stored := decode[entities.BookRequest](t, w)
	assert.Equal(t, entities.BookRequestSent, stored.Status)
	require.Len(t, f.mail.params, 1)
	assert.Equal(t, "The Analytical Engine", f.mail.params[0]["bookTitle"])

	w = do(t, f.router, http.MethodPost, "/api/requests", map[string]string{"name": "Ada", "email": "nope"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[ErrorResponse](t, w)
	assert.Equal(t, "validation_failed", body.Code)
	assert.Contains(t, body.Details, "email")
	assert.Contains(t, body.Details, "bookTitle")

	w = do(t, f.router, http.MethodGet, "/api/requests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestRouter_CORSAndHeaders(t *testing.T) {
	f := setupAPI(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/requests", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = do(t, f.router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
