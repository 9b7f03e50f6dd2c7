package main // booking event consumer

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/logger"
	"github.com/iliyamo/hotel-reservation/internal/queue"
)

// The consumer reads only the broker URL and log paths; config.Load would
// also require the database variables.
func main() {
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "logs/consumer.log"
	}
	bookingLog := os.Getenv("BOOKING_LOG_FILE")
	if bookingLog == "" {
		bookingLog = "logs/booking.log"
	}
	prod := os.Getenv("APP_ENV") == "prod" || os.Getenv("APP_ENV") == "production"

	logg := logger.New(logFile, prod)
	defer func() { _ = logg.Sync() }()
	events := logger.NewFileOnly(bookingLog)
	defer func() { _ = events.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: config.AMQPURL(), Log: logg, BookingLog: events}
	logg.Info("consumer started", zap.Strings("queues", queue.Queues))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Fatal("consumer stopped", zap.Error(err))
	}
	logg.Info("consumer stopped")
}
