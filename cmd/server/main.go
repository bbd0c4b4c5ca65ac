package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tcon/booking-service/internal/app"
	"github.com/tcon/booking-service/internal/config"
	"github.com/tcon/booking-service/internal/controller"
	"github.com/tcon/booking-service/internal/event"
	"github.com/tcon/booking-service/internal/lock"
	"github.com/tcon/booking-service/internal/repository"
	"github.com/tcon/booking-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	bookingRepo := repository.NewBookingRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	availabilityRepo := repository.NewAvailabilityRepository(pool)

	var guard lock.Guard = lock.NewMemoryGuard()
	if cfg.RedisAddr != "" {
		redisGuard, err := lock.NewRedisGuard(cfg.RedisAddr, logger)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisGuard.Close()
		guard = redisGuard
	}

	var sink event.Sink = event.NopSink{}
	if cfg.NatsURL != "" {
		natsSink, err := event.NewNatsSink(cfg.NatsURL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to nats", zap.Error(err))
		}
		defer natsSink.Close()
		sink = natsSink
	}

	bookingService := service.NewBookingService(bookingRepo, sessionRepo, guard, sink, logger)
	cancellationService := service.NewCancellationService(bookingRepo, sink, logger)
	availabilityService := service.NewAvailabilityService(availabilityRepo, bookingRepo, sessionRepo, logger)

	scheduler := app.NewScheduler(bookingService, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	ctrl := controller.New(bookingService, cancellationService, availabilityService, logger)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      ctrl.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
