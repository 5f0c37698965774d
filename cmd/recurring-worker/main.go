package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finbook/internal/amqp"
	"finbook/internal/config"
	"finbook/internal/core"
	applog "finbook/internal/log"
	"finbook/internal/scheduler"
	"finbook/internal/services"
	"finbook/internal/storage"
)

func main() {
	once := flag.Bool("once", false, "run a single materialization pass and exit")
	flag.Parse()

	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	cfgLog := applog.DefaultConfig()
	cfgLog.Component = applog.ComponentScheduler
	logger := applog.New(cfgLog)
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Failed to resolve timezone", "error", err, "timezone", cfg.Timezone)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Materialized transactions are announced over AMQP so the sync worker
	// mirrors them; without a broker the periodic sweep still picks them up.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without publishing", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized")
		}
	} else {
		logger.Info("AMQP disabled - materialized transactions sync via the pending sweep only")
	}

	materializer := services.NewMaterializer(repo, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		res, err := materializer.Run(ctx, core.DateOf(time.Now().In(loc)))
		if err != nil {
			logger.Error("Materialization failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Materialization complete",
			"due", res.Due,
			"materialized", res.Materialized,
			"failed", res.Failed)
		return
	}

	// Catch up on anything that came due while the worker was down.
	logger.Info("Running initial materialization...")
	if res, err := materializer.Run(ctx, core.DateOf(time.Now().In(loc))); err != nil {
		logger.Error("Initial materialization failed", "error", err)
	} else {
		logger.Info("Initial materialization complete",
			"due", res.Due,
			"materialized", res.Materialized,
			"failed", res.Failed)
	}

	sched := scheduler.New(materializer, loc)

	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx)
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Scheduler stopped", "error", err)
			os.Exit(1)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
	logger.Info("Recurring-worker shutdown complete")
}
