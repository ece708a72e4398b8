package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/entities"
)

func setupSessionManager(t *testing.T, secure bool) *SessionManager {
	t.Helper()

	db, err := database.NewQuietDatabase(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlDB, err := db.SQLDB()
	require.NoError(t, err)

	sm, err := NewSessionManager(sqlDB, config.Auth{
		Mode:            config.AuthModeLocal,
		SessionLifetime: 24 * time.Hour,
		SecureCookies:   secure,
	})
	require.NoError(t, err)
	return sm
}

func TestNewSessionManager(t *testing.T) {
	sm := setupSessionManager(t, false)

	assert.Equal(t, "session", sm.Cookie.Name)
	assert.True(t, sm.Cookie.HttpOnly)
	assert.False(t, sm.Cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, sm.Cookie.SameSite)
	assert.Equal(t, 12*time.Hour, sm.IdleTimeout)

	assert.True(t, setupSessionManager(t, true).Cookie.Secure)
}

func TestSessionManager_Lifecycle(t *testing.T) {
	sm := setupSessionManager(t, false)
	user := &entities.User{ID: "4b7e0a52-3f3c-4f7a-9d55-1c0b6b1f2a10", Username: "reader"}

	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, sm.IsAuthenticated(r))
		assert.Empty(t, sm.GetUserID(r))
		assert.True(t, sm.LoginAt(r).IsZero())

		require.NoError(t, sm.CreateSession(r, user))
		assert.True(t, sm.IsAuthenticated(r))
		assert.Equal(t, user.ID, sm.GetUserID(r))
		assert.Equal(t, "reader", sm.GetUsername(r))
		assert.False(t, sm.LoginAt(r).IsZero())

		require.NoError(t, sm.DestroySession(r))
		assert.False(t, sm.IsAuthenticated(r))

		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSessionManager_CookieRoundTrip(t *testing.T) {
	sm := setupSessionManager(t, false)
	user := &entities.User{ID: "user-1", Username: "reader"}

	login := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, sm.CreateSession(r, user))
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	login.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)

	var seen string
	me := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = sm.GetUserID(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookies[0])
	me.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "user-1", seen)
}
