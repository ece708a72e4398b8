package http

import (
	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/catalog"
	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/reader"
	"github.com/mrlokans/shelf/internal/requests"
)

// RouterConfig contains all dependencies and configuration needed to
// create the HTTP router.
type RouterConfig struct {
	Catalog  *catalog.Service
	Reader   *reader.Service
	Requests *requests.Service

	// Health lists the dependencies probed by /health.
	Health  map[string]Pinger
	Version string

	// Task queue status (optional)
	Tasks TaskStatusReader

	// Authentication. AuthService and SessionManager are only set in local
	// mode.
	AuthConfig     config.Auth
	AuthMiddleware *auth.Middleware
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	CSRFSecret     []byte

	AllowedOrigins []string
}
