package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/config"
	appHTTP "github.com/cmlabs-hris/geoclock-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/logger"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/repository/postgresql"
	clockService "github.com/cmlabs-hris/geoclock-backend-go/internal/service/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/service/feed"
	geofenceService "github.com/cmlabs-hris/geoclock-backend-go/internal/service/geofence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	log, logCloser := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	log = log.With(
		slog.String("app", "geoclock"),
		slog.String("version", cfg.App.Version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(log)

	err = run(cfg, log)
	if err != nil {
		slog.Error("Server stopped with error", "error", err)
	}
	logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("Database ready", "migrations_applied", len(applied))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	jobSiteRepo := postgresql.NewJobSiteRepository(db)
	settingsRepo := postgresql.NewBusinessSettingsRepository(db)
	eventRepo := postgresql.NewClockEventRepository(db)
	entryRepo := postgresql.NewTimeEntryRepository(db)
	approvalRepo := postgresql.NewOverrideApprovalRepository(db)

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return err
	}

	hub := sse.NewHub()
	feedService := feed.NewService(hub, feed.Config{})
	defer feedService.Stop()

	geofenceSvc := geofenceService.NewGeofenceService(jobSiteRepo, settingsRepo, geofenceService.Config{
		DefaultRadiusMeters: cfg.Clock.DefaultRadiusMeters,
		MaxExpansionWindow:  cfg.Clock.MaxExpansionWindow,
	}, nil)
	clockSvc := clockService.NewClockService(
		db,
		eventRepo,
		entryRepo,
		approvalRepo,
		geofenceSvc,
		feedService,
		appMetrics,
		clockService.Config{
			LocationMaxAge: cfg.Clock.LocationMaxAge,
			OverrideWindow: cfg.Clock.OverrideWindow,
		},
		nil,
	)

	scheduler := cron.NewScheduler()
	if cfg.Cron.Enabled {
		timeEntryJobs := cron.NewTimeEntryJobs(entryRepo, feedService, appMetrics, cfg.Cron.StaleEntryAfter, nil)
		timeEntryJobs.RegisterJobs(scheduler, cfg.Cron.StaleEntryInterval)
		scheduler.Start()
	}
	defer scheduler.Stop()

	routerOpts := appHTTP.RouterOptions{
		Logger:         log,
		AllowedOrigins: cfg.App.AllowedOrigins,
	}
	if cfg.App.MetricsEnabled {
		routerOpts.MetricsHandler = metrics.Handler(registry)
	}

	router := appHTTP.NewRouter(
		routerOpts,
		JWTService,
		appHTTP.NewClockHandler(clockSvc),
		appHTTP.NewGeofenceHandler(geofenceSvc),
		appHTTP.NewStreamHandler(hub, JWTService, appMetrics),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Open SSE streams end when the signal context is cancelled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
