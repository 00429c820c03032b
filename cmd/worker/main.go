// Command worker consumes reservation events from RabbitMQ and appends them
// to the audit log.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/manishmaharjan/reservation-system/internal/config"
	"github.com/manishmaharjan/reservation-system/internal/logging"
	"github.com/manishmaharjan/reservation-system/internal/queue"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadWorker()

	logger, err := logging.New(cfg.Env == "prod" || cfg.Env == "production", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.RabbitURL == "" {
		logger.Fatal("RABBITMQ_URL is off; nothing to consume")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.AuditLog), 0o755); err != nil {
		logger.Fatal("create audit log dir", zap.Error(err))
	}
	out, err := os.OpenFile(cfg.AuditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Fatal("open audit log", zap.Error(err))
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := queue.NewConsumer(cfg.RabbitURL, logger)
	c.Out = out
	logger.Info("consuming reservation events", zap.String("queue", c.Queue), zap.String("audit_log", cfg.AuditLog))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", zap.Error(err))
	}
}
