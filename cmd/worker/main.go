// Command worker consumes booking.confirmed events and appends one line per
// booking to the booking log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/config"
	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
	"github.com/iliyamo/cinema-box-office/internal/queue"
)

func main() {
	cfg := config.LoadBroker()
	logger.Set(logger.NewLogger(cfg.Env))
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("booking log worker started", zap.String("log_path", cfg.BookingLogPath))
	err := queue.NewConsumer(cfg.RabbitURL, cfg.BookingLogPath).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("booking log worker", zap.Error(err))
	}
	logger.Info("booking log worker stopped")
}
