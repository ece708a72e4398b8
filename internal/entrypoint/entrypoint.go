// Package entrypoint wires configuration into the running service.
package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/catalog"
	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/database"
	dbrequests "github.com/mrlokans/shelf/internal/database/requests"
	"github.com/mrlokans/shelf/internal/emailjs"
	http_controllers "github.com/mrlokans/shelf/internal/http"
	applog "github.com/mrlokans/shelf/internal/logger"
	"github.com/mrlokans/shelf/internal/reader"
	"github.com/mrlokans/shelf/internal/requests"
	"github.com/mrlokans/shelf/internal/scheduler"
	"github.com/mrlokans/shelf/internal/tasks"
)

var log = applog.WithComponent("entrypoint")

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured timeout.
func Serve(ctx context.Context, router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	log.WithField("timeout", timeout).Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so nothing new is enqueued mid-shutdown.
	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("Server exiting")
	return nil
}

// Run builds every component from cfg and serves until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	applog.Setup(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log.WithField("version", version).Info("Starting shelf")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("Error closing database")
		}
	}()

	st, err := OpenStores(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer st.Close()

	cat := catalog.NewService(st.Books, st.Records, cfg.Catalog.CacheTTL)
	if cfg.Catalog.SeedFile != "" {
		if n, err := SeedCatalogFile(ctx, cat, cfg.Catalog.SeedFile); err != nil {
			log.WithError(err).WithField("file", cfg.Catalog.SeedFile).Warn("Catalog seeding failed")
		} else {
			log.WithField("count", n).Info("Catalog seeded from file")
		}
	}
	rdr := reader.NewService(cat, st.Records, cfg.Highlights)

	mailer := newMailer(cfg.Requests)
	reqs := requests.NewService(dbrequests.NewRepository(db.DB), mailer, cfg.Requests)

	var taskClient *tasks.Client
	var taskCancel context.CancelFunc
	var purges scheduler.PurgeEnqueuer
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromSettings(cfg.Tasks))
		if err != nil {
			return fmt.Errorf("initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.WithError(err).Warn("Error closing task client")
			}
		}()

		taskClient.Register(
			tasks.NewDeliverBookRequestQueue(reqs),
			tasks.NewPurgeBookRequestsQueue(reqs),
		)
		reqs.UseQueue(taskClient)
		purges = taskClient

		var taskCtx context.Context
		taskCtx, taskCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	} else {
		log.Info("Task queue disabled, book requests are delivered inline")
	}

	sweeps := scheduler.NewRequestScheduler(reqs, purges, cfg.Requests)
	if err := sweeps.Start(ctx); err != nil {
		log.WithError(err).Warn("Request sweep not scheduled")
	}

	a, err := setupAuth(ctx, cfg, db)
	if err != nil {
		return err
	}

	routerCfg := http_controllers.RouterConfig{
		Catalog:        cat,
		Reader:         rdr,
		Requests:       reqs,
		Health:         st.Health,
		Version:        version,
		AuthConfig:     cfg.Auth,
		AuthMiddleware: a.middleware,
		AuthService:    a.service,
		SessionManager: a.sessions,
		CSRFSecret:     a.csrfKey,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}
	if taskClient != nil {
		routerCfg.Tasks = taskClient
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		sweeps.Stop()
		if taskClient != nil {
			taskClient.Stop(ctx)
			taskCancel()
		}
	}
	return Serve(ctx, router, cfg, onShutdown)
}

func newMailer(cfg config.Requests) *emailjs.Client {
	mcfg := emailjs.Config{
		Endpoint:   cfg.EmailJSEndpoint,
		ServiceID:  cfg.EmailJSServiceID,
		TemplateID: cfg.EmailJSTemplateID,
		PublicKey:  cfg.EmailJSPublicKey,
		PrivateKey: cfg.EmailJSPrivateKey,
	}
	if !mcfg.Configured() {
		log.Warn("EmailJS is not configured, book requests will stay pending. Set EMAILJS_SERVICE_ID, EMAILJS_TEMPLATE_ID and EMAILJS_PUBLIC_KEY.")
	}
	return emailjs.NewClient(mcfg)
}
