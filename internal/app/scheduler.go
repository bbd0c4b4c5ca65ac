package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tcon/booking-service/internal/service"
)

// expirySweepInterval is how often stale payment-pending bookings are
// checked. The payment window itself lives in the booking service.
const expirySweepInterval = 1 * time.Hour

// Scheduler runs the background maintenance tasks.
type Scheduler struct {
	bookingService *service.BookingService
	logger         *zap.Logger
	stopChan       chan struct{}
}

func NewScheduler(bookingService *service.BookingService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		bookingService: bookingService,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")
	go s.runPaymentExpiryTask(ctx)
}

func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

func (s *Scheduler) runPaymentExpiryTask(ctx context.Context) {
	// Run once right away so a restart never delays the sweep.
	s.expireStalePayments(ctx)

	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expireStalePayments(ctx)
		case <-s.stopChan:
			s.logger.Info("Payment expiry task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Payment expiry task cancelled")
			return
		}
	}
}

func (s *Scheduler) expireStalePayments(ctx context.Context) {
	expired, err := s.bookingService.ExpireStalePayments(ctx)
	if err != nil {
		s.logger.Error("Failed to expire stale payments", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("Expired stale payment bookings", zap.Int("count", expired))
	}
}
