package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping() error
}

type HealthController struct {
	checks  map[string]Pinger
	version string
}

// NewHealthController probes each named dependency on every request. Nil
// entries are reported as "not configured".
func NewHealthController(version string, checks map[string]Pinger) *HealthController {
	return &HealthController{checks: checks, version: version}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string, len(h.checks))
	status := "healthy"

	for name, dep := range h.checks {
		switch {
		case dep == nil:
			checks[name] = "not configured"
		case dep.Ping() != nil:
			checks[name] = "error"
			status = "unhealthy"
		default:
			checks[name] = "ok"
		}
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	})
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
