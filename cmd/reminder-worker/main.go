package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-encounter-engine/internal/appointment"
	"github.com/hackgods/clinic-encounter-engine/internal/config"
	"github.com/hackgods/clinic-encounter-engine/internal/db"
	"github.com/hackgods/clinic-encounter-engine/internal/logging"
	"github.com/hackgods/clinic-encounter-engine/internal/notification"
	"github.com/hackgods/clinic-encounter-engine/internal/reminder"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.LogLevel, cfg.Env)
	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.ReminderInterval).
		Dur("lead", cfg.ReminderLead).
		Msg("reminder-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	runner := reminder.NewRunner(
		appointment.NewPgRepository(pgPool),
		notification.NewPgStore(pgPool),
		cfg.ReminderLead,
		cfg.ViewerLocation,
		logger,
	)

	// Run once at startup
	runOnce(rootCtx, runner, logger)

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, runner, logger)
		}
	}
}

func runOnce(ctx context.Context, runner *reminder.Runner, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	stats, err := runner.RunOnce(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("reminder run error")
		return
	}
	logger.Info().
		Int("due", stats.Due).
		Int("inserted", stats.Inserted).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Dur("took", time.Since(start)).
		Msg("reminder run complete")
}
