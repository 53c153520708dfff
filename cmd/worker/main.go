package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/c4p-portal/internal/database"
	"github.com/hugh/c4p-portal/internal/storage"
	"github.com/hugh/c4p-portal/internal/tasks"
	"github.com/hugh/c4p-portal/pkg/config"
	"github.com/hugh/c4p-portal/pkg/queue"
	"github.com/hugh/c4p-portal/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env, "worker")
	slog.SetDefault(logger)

	logger.Info("starting media worker",
		"concurrency", cfg.Worker.Concurrency,
		"uploads_dir", cfg.Legacy.UploadsDir,
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, cfg.Server.Env, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	uploader, err := storage.New(ctx, &cfg.Storage)
	cancel()
	if err != nil {
		logger.Error("failed to configure storage", "provider", cfg.Storage.Provider, "error", err)
		os.Exit(1)
	}

	client := queue.NewClient(&cfg.Redis)
	defer client.Close()

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency, logger)

	// Create task handler
	handler := tasks.NewHandler(db, logger, uploader, client, cfg.Legacy.UploadsDir)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Periodic sweep
	var scheduler *asynq.Scheduler
	if expr := cfg.Legacy.SweepCron; expr != "" {
		if err := util.ValidateCronExpr(expr); err != nil {
			logger.Error("invalid LEGACY_SWEEP_CRON", "error", err)
			os.Exit(1)
		}

		scheduler = queue.NewScheduler(&cfg.Redis)
		entryID, err := scheduler.Register(expr, tasks.NewLegacySweepTask())
		if err != nil {
			logger.Error("failed to schedule legacy sweep", "error", err)
			os.Exit(1)
		}
		next, _ := util.NextRun(expr, time.Now())
		logger.Info("legacy sweep scheduled", "cron", expr, "entry_id", entryID, "next_run", next)

		if err := scheduler.Start(); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		if scheduler != nil {
			scheduler.Shutdown()
		}
		srv.Shutdown()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
