package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/config"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())
	router.Use(corsMiddleware(cfg.AllowedOrigins))
	router.Use(auth.SecurityHeadersMiddleware(), auth.StrictTransportSecurityMiddleware())

	local := cfg.AuthConfig.Mode == config.AuthModeLocal
	if local && len(cfg.CSRFSecret) > 0 {
		// CSRF runs first so the request it hands on still carries the
		// session context loaded below.
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies, cfg.AllowedOrigins, cfg.AuthService))
	}
	if local && cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyIdentity, auth.AnonymousIdentity())
			c.Next()
		})
	}

	health := NewHealthController(cfg.Version, cfg.Health)
	router.GET("/health", health.Status)
	router.GET("/ping", Ping)

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.GET("/me", auth.Me)
	if local && cfg.AuthService != nil && cfg.SessionManager != nil {
		auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.AuthConfig).RegisterRoutes(authGroup)
	}

	books := NewBooksController(cfg.Catalog)
	api.GET("/books", books.List)
	api.GET("/books/categories", books.Categories)
	api.GET("/books/:id", books.Get)

	reading := NewReadingController(cfg.Reader)
	api.GET("/books/:id/reading", reading.Open)
	api.PUT("/books/:id/reading/page", reading.Bookmark)
	api.POST("/books/:id/reading/read", reading.ToggleRead)

	hl := NewHighlightsController(cfg.Reader)
	api.GET("/books/:id/highlights", hl.List)
	api.POST("/books/:id/highlights", hl.Capture)
	api.POST("/books/:id/highlights/resync", hl.Resync)
	api.DELETE("/books/:id/highlights/:hid", hl.Remove)
	api.PATCH("/books/:id/highlights/:hid/note", hl.EditNote)

	if cfg.Requests != nil {
		reqs := NewRequestsController(cfg.Requests)
		api.POST("/requests", reqs.Submit)
		api.GET("/requests", reqs.List)
	}

	if cfg.Tasks != nil {
		api.GET("/tasks/:id", NewTasksController(cfg.Tasks).GetTaskStatus)
	}

	return router
}

// corsMiddleware adapts rs/cors to gin. Preflight requests are answered
// here and never reach the handlers.
func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.CSRFTokenHeader},
		ExposedHeaders:   []string{auth.CSRFTokenHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == http.MethodOptions && ctx.GetHeader("Access-Control-Request-Method") != "" {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}

// requestLogger logs each request through logrus.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}
