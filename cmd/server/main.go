package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/showtime-booking/internal/config"
	"github.com/iliyamo/showtime-booking/internal/database"
	"github.com/iliyamo/showtime-booking/internal/handler"
	"github.com/iliyamo/showtime-booking/internal/middleware"
	"github.com/iliyamo/showtime-booking/internal/queue"
	"github.com/iliyamo/showtime-booking/internal/repository"
	"github.com/iliyamo/showtime-booking/internal/router"
	"github.com/iliyamo/showtime-booking/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	log := config.NewLogger(cfg.LogLevel, cfg.Env)

	bookingCfg, err := config.LoadBookingConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid booking config")
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migrate schema")
		}
	}

	getter := trmsqlx.DefaultCtxGetter
	tx := database.NewTxManager(db)

	seatRepo := repository.NewSeatRepo(db, getter)
	roomRepo := repository.NewRoomRepo(db, getter)
	showtimeRepo := repository.NewShowtimeRepo(db, getter)
	bookingRepo := repository.NewBookingRepo(db, getter)
	paymentRepo := repository.NewPaymentRepo(db, getter)

	publisher := queue.NewPublisher(cfg.RabbitURL, log)
	defer publisher.Close()

	availability := service.NewAvailabilityService(showtimeRepo, seatRepo, bookingRepo, log)
	payments := service.NewPaymentService(paymentRepo, bookingRepo, log)
	bookings := service.NewBookingService(tx, showtimeRepo, seatRepo, bookingRepo, payments, publisher, service.BookingOptions{
		MaxAttempts:    bookingCfg.MaxAttempts,
		RetryBackoff:   bookingCfg.RetryBackoff,
		PricePolicy:    bookingCfg.PricePolicy,
		PublishTimeout: bookingCfg.PublishTimeout,
	}, log)
	layouts := service.NewLayoutService(tx, roomRepo, seatRepo, bookingRepo, log)

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)

	e := router.New(router.Handlers{
		Health:   handler.Health(db),
		Seats:    handler.NewSeatHandler(availability, log),
		Bookings: handler.NewBookingHandler(bookings, log),
		Payments: handler.NewPaymentHandler(payments, log),
		Layouts:  handler.NewLayoutHandler(layouts, log),
	}, cfg.JWTSecret, limiter, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return e.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
