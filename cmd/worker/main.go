package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/storeadmin-dev/storeadmin/internal/analytics"
	"github.com/storeadmin-dev/storeadmin/internal/config"
	"github.com/storeadmin-dev/storeadmin/internal/database"
	"github.com/storeadmin-dev/storeadmin/internal/logger"
	"github.com/storeadmin-dev/storeadmin/internal/login"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
	"github.com/storeadmin-dev/storeadmin/internal/tasks"
	"github.com/storeadmin-dev/storeadmin/internal/vault"
	"github.com/storeadmin-dev/storeadmin/internal/workers"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init("worker", cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	log.Info().Str("version", version).Msg("Starting store admin Asynq worker")

	db, err := database.Open(cfg.Database.URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close(db)

	client, err := storeapi.New(cfg.StoreAPI.URL, cfg.StoreAPI.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create store API client")
	}
	if cfg.StoreAPI.Email == "" {
		log.Warn().Msg("STORE_API_EMAIL not set, metric capture will read the store API without a session")
	}

	capturer := workers.NewMetricsCapturer(
		client,
		login.NewService(nil, log),
		analytics.NewService(db, log),
		cfg.StoreAPI.Email,
		cfg.StoreAPI.Password,
		cfg.Metrics.Retention,
		log,
	)
	cookieVault := vault.New(db, cfg.Session.Secret, log)

	// Initialize Asynq client (the scheduler enqueues through it)
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})
	defer asynqClient.Close()

	// Initialize Asynq server
	asynqServer := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr: cfg.Redis.Address,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				tasks.QueueDefault: 3,
				tasks.QueueLow:     1,
			},
			// Logging
			Logger: &asynqLogger{log: log},
		},
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCaptureMetrics, capturer.HandleCaptureMetrics)
	mux.HandleFunc(tasks.TypePruneSessions, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandlePruneSessions(ctx, t, cookieVault, cfg.Session.IdleTTL, log)
	})

	scheduler, err := workers.NewScheduler(asynqClient, cfg.Metrics.Schedule, log)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Metrics.Schedule).Msg("Invalid metrics schedule")
	}
	scheduler.Start()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Info().Msg("Starting Asynq worker server...")
		if err := asynqServer.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("Asynq worker server failed")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	<-scheduler.Stop().Done()

	log.Info().Msg("Stopping Asynq worker - waiting for tasks to finish...")
	asynqServer.Shutdown()

	log.Info().Msg("Worker shutdown complete")
}

// asynqLogger is a wrapper to make zerolog compatible with Asynq's logger interface
type asynqLogger struct {
	log zerolog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.log.Debug().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.log.Info().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.log.Warn().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.log.Fatal().Msg(fmt.Sprint(args...))
}
