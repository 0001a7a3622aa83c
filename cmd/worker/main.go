// Command worker consumes booking.confirmed events and appends them to
// the booking log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/showtime-booking/internal/config"
	"github.com/iliyamo/showtime-booking/internal/queue"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadWorker()
	log := config.NewLogger(cfg.LogLevel, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := queue.NewConsumer(cfg.RabbitURL, cfg.BookingLogPath, log)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Run(ctx) })

	log.WithField("log_path", cfg.BookingLogPath).Info("booking consumer started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("booking consumer stopped")
	}
	log.Info("booking consumer stopped")
}
