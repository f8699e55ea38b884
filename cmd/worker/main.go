// Worker tails session events from Kafka and writes them to the structured log.
// Set KAFKA_BROKERS, SESSION_EVENTS_TOPIC, and KAFKA_GROUP_ID.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"staff-dashboard/internal/app"
	"staff-dashboard/internal/config"
	"staff-dashboard/internal/telemetry"
	"staff-dashboard/internal/telemetry/consumer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal("worker: KAFKA_BROKERS is required")
	}

	reader := consumer.NewReader(brokers, cfg.SessionEventsTopic, cfg.KafkaGroupID)
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker: consuming",
		zap.String("topic", cfg.SessionEventsTopic),
		zap.String("group", cfg.KafkaGroupID))

	err = consumer.Run(ctx, reader, func(_ context.Context, e *telemetry.SessionEvent) error {
		logger.Info("session event",
			zap.String("type", e.Type),
			zap.String("user_id", e.UserID),
			zap.String("role", e.Role),
			zap.Bool("demo", e.Demo),
			zap.String("failure", e.Failure),
			zap.Time("created_at", e.CreatedAt))
		return nil
	}, logger)
	if err != nil {
		logger.Error("worker: stopped", zap.Error(err))
		return
	}
	logger.Info("worker: stopped")
}
