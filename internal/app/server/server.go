package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"epas/internal/domain/appraisal"
	"epas/internal/domain/audit"
	"epas/internal/domain/auth"
	"epas/internal/domain/directory"
	"epas/internal/domain/forms"
	"epas/internal/domain/notifications"
	"epas/internal/platform/config"
	"epas/internal/platform/db"
	"epas/internal/platform/email"
	"epas/internal/platform/metrics"
	"epas/internal/transport/http/api"
	appraisalshandler "epas/internal/transport/http/handlers/appraisals"
	audithandler "epas/internal/transport/http/handlers/audit"
	directoryhandler "epas/internal/transport/http/handlers/directory"
	formshandler "epas/internal/transport/http/handlers/forms"
	notificationshandler "epas/internal/transport/http/handlers/notifications"
	"epas/internal/transport/http/middleware"
)

// App holds the wired application: database pool, HTTP router, and the
// services behind it. Construct with New, start with Run, release with Close.
type App struct {
	Config    config.Config
	Pool      *pgxpool.Pool
	Router    http.Handler
	Collector *metrics.Collector
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	directorySvc := directory.NewService(directory.NewStore(pool))
	appraisalSvc := appraisal.NewService(appraisal.NewStore(pool), directorySvc)
	formsSvc := forms.NewService(forms.NewStore(pool))
	notifySvc := notifications.New(notifications.NewStore(pool), email.New(cfg))
	auditSvc := audit.New(pool)
	authSvc := auth.NewService(auth.NewStore(pool))

	collector := metrics.New()

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Logger(collector))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.WorkflowRateLimit(cfg.RateLimitPerMinute, time.Minute))

		directoryhandler.NewHandler(directorySvc, appraisalSvc, authSvc).RegisterRoutes(r)
		formshandler.NewHandler(formsSvc, authSvc, auditSvc).RegisterRoutes(r)
		appraisalshandler.NewHandler(appraisalSvc, directorySvc, authSvc, notifySvc, auditSvc).RegisterRoutes(r)
		notificationshandler.NewHandler(notifySvc, authSvc).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, authSvc).RegisterRoutes(r)
	})

	return &App{Config: cfg, Pool: pool, Router: router, Collector: collector}, nil
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (a *App) Close() {
	a.Pool.Close()
}
