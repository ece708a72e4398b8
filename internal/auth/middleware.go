package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/config"
	applog "github.com/mrlokans/shelf/internal/logger"
)

var log = applog.WithComponent("auth")

// ContextKeyIdentity holds the caller's Identity in the gin context.
const ContextKeyIdentity = "auth_identity"

// Middleware resolves the caller's identity for every request according to
// the configured auth mode.
type Middleware struct {
	mode        config.AuthMode
	service     *Service
	sessions    *SessionManager
	verifier    *SupabaseVerifier
	publicPaths map[string]bool
}

// NewMiddleware creates the identity gate. service and sessions are used in
// local mode, verifier in supabase mode; the others may be nil.
func NewMiddleware(cfg config.Auth, service *Service, sessions *SessionManager, verifier *SupabaseVerifier) *Middleware {
	return &Middleware{
		mode:     cfg.Mode,
		service:  service,
		sessions: sessions,
		verifier: verifier,
		publicPaths: map[string]bool{
			"/health":          true,
			"/ping":            true,
			"/api/auth/login":  true,
			"/api/auth/logout": true,
		},
	}
}

// Handler returns the gin middleware.
func (m *Middleware) Handler() gin.HandlerFunc {
	switch m.mode {
	case config.AuthModeLocal:
		return m.gate(m.localIdentity)
	case config.AuthModeSupabase:
		return m.gate(m.supabaseIdentity)
	default:
		return func(c *gin.Context) {
			c.Set(ContextKeyIdentity, AnonymousIdentity())
			c.Next()
		}
	}
}

func (m *Middleware) gate(resolve func(c *gin.Context) (Identity, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := resolve(c); ok {
			c.Set(ContextKeyIdentity, id)
			c.Next()
			return
		}
		if m.isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		c.Header("WWW-Authenticate", "Bearer")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrAuthRequired.Error()})
	}
}

// localIdentity tries a bearer API token first, then the session cookie.
func (m *Middleware) localIdentity(c *gin.Context) (Identity, bool) {
	if token := bearerToken(c); token != "" && m.service != nil {
		user, err := m.service.ValidateToken(c.Request.Context(), token)
		if err == nil {
			return Identity{UserID: user.ID, Username: user.Username, Method: AuthTypeBearer}, true
		}
		log.WithError(err).Debug("Rejected API token")
	}

	if m.sessions == nil {
		return Identity{}, false
	}
	userID := m.sessions.GetUserID(c.Request)
	if userID == "" {
		return Identity{}, false
	}
	return Identity{UserID: userID, Username: m.sessions.GetUsername(c.Request), Method: AuthTypeSession}, true
}

func (m *Middleware) supabaseIdentity(c *gin.Context) (Identity, bool) {
	token := bearerToken(c)
	if token == "" || m.verifier == nil {
		return Identity{}, false
	}
	id, err := m.verifier.Verify(token)
	if err != nil {
		log.WithError(err).Debug("Rejected Supabase token")
		return Identity{}, false
	}
	return id, true
}

func (m *Middleware) isPublicPath(path string) bool {
	return m.publicPaths[path]
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetIdentity returns the identity the middleware attached, or the zero
// Identity on public routes.
func GetIdentity(c *gin.Context) Identity {
	if v, ok := c.Get(ContextKeyIdentity); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Identity{}
}
