package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-encounter-engine/internal/api"
	"github.com/hackgods/clinic-encounter-engine/internal/appointment"
	"github.com/hackgods/clinic-encounter-engine/internal/clinical"
	"github.com/hackgods/clinic-encounter-engine/internal/config"
	"github.com/hackgods/clinic-encounter-engine/internal/db"
	"github.com/hackgods/clinic-encounter-engine/internal/encounter"
	"github.com/hackgods/clinic-encounter-engine/internal/logging"
	"github.com/hackgods/clinic-encounter-engine/internal/metrics"
	"github.com/hackgods/clinic-encounter-engine/internal/notification"
	redisclient "github.com/hackgods/clinic-encounter-engine/internal/redis"
	"github.com/hackgods/clinic-encounter-engine/internal/timeline"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.LogLevel, cfg.Env)
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("version", version).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.Connect(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	appointments := appointment.NewService(appointment.NewPgRepository(pgPool), logger, m)
	encounters := encounter.NewOrchestrator(appointments, encounter.NewRedisLinkStore(rdb, cfg.LinkTTL), logger, m)
	notifications := notification.NewAggregator(
		notification.NewPgStore(pgPool),
		notification.NewRedisOverlay(rdb, cfg.ReadStateTTL),
		logger,
		m,
	)

	router := api.NewRouter(api.RouterConfig{
		Appointments:  appointments,
		Encounters:    encounters,
		Notifications: notifications,
		Patients:      clinical.NewPgPatientLookup(pgPool),
		Checks: map[string]api.Pinger{
			"postgres": pgPool,
			"redis":    api.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
		Logger:   logger,
		Metrics:  m,
		Gatherer: registry,
		Window:   timeline.Window{StartHour: cfg.TimelineStartHour, EndHour: cfg.TimelineEndHour},
		Location: cfg.ViewerLocation,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("api-server stopped")
}
