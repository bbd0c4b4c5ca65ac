package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tcon/booking-service/internal/event"
	"github.com/tcon/booking-service/internal/model"
)

type CancellationService struct {
	bookingStore BookingStore
	sink         event.Sink
	logger       *zap.Logger
	now          func() time.Time
}

func NewCancellationService(bookingStore BookingStore, sink event.Sink, logger *zap.Logger) *CancellationService {
	return &CancellationService{
		bookingStore: bookingStore,
		sink:         sink,
		logger:       logger,
		now:          time.Now,
	}
}

// Cancel cancels a booking on behalf of its student or teacher and settles
// the refund per the policy copied onto the booking at creation. Legal from
// PENDING, PENDING_PAYMENT or CONFIRMED, and only before the session starts.
func (s *CancellationService) Cancel(ctx context.Context, bookingID, callerID, reason string) (*model.Booking, error) {
	booking, err := s.bookingStore.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrNotFound
	}

	if booking.StudentID != callerID && booking.TeacherID != callerID {
		return nil, ErrUnauthorized
	}

	switch booking.Status {
	case model.BookingStatusPending, model.BookingStatusPendingPayment, model.BookingStatusConfirmed:
	default:
		return nil, ErrInvalidState
	}

	now := s.now()
	if start := sessionStart(booking); start != nil && start.Before(now) {
		return nil, ErrSessionStarted
	}

	refund := decimal.Zero
	if booking.Amount.IsPositive() {
		refund = CalculateRefund(booking.Amount, booking.CancellationPolicy, hoursUntil(now, sessionStart(booking)))
	}

	booking.Status = model.BookingStatusCancelled
	booking.CancellationReason = reason
	booking.CancelledAt = &now
	booking.CancelledBy = callerID
	booking.RefundAmount = &refund

	if err := s.bookingStore.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", bookingID),
		zap.String("cancelled_by", callerID),
		zap.String("refund_amount", refund.StringFixed(2)))

	s.sink.Publish(ctx, event.BookingEvent{
		EventType:          event.TypeBookingCancelled,
		BookingID:          booking.ID,
		SessionID:          booking.SessionID,
		StudentID:          booking.StudentID,
		TeacherID:          booking.TeacherID,
		CancellationReason: reason,
		RefundAmount:       &refund,
		Timestamp:          now,
	})

	return booking, nil
}

// CalculateRefund maps (amount, policy, hours until the session) to a refund
// amount, in tiers that shrink as the session approaches:
//
//	>= policy threshold  -> policy percentage of the amount
//	12..24h              -> 50%
//	6..12h               -> 25%
//	< 6h                 -> nothing
//
// Results are rounded to 2 decimal places, half up. A zero amount or a
// missing policy refunds nothing.
func CalculateRefund(amount decimal.Decimal, policy *model.CancellationPolicy, hoursUntilSession int64) decimal.Decimal {
	if policy == nil || !amount.IsPositive() {
		return decimal.Zero
	}

	switch {
	case hoursUntilSession >= int64(policy.HoursBeforeSession):
		pct := decimal.NewFromInt(int64(policy.RefundPercentage))
		return amount.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	case hoursUntilSession >= 12:
		return amount.Mul(decimal.NewFromFloat(0.5)).Round(2)
	case hoursUntilSession >= 6:
		return amount.Mul(decimal.NewFromFloat(0.25)).Round(2)
	default:
		return decimal.Zero
	}
}

// sessionStart is the booking's first session start, covering both single
// and batch bookings.
func sessionStart(booking *model.Booking) *time.Time {
	if booking.SessionStart != nil {
		return booking.SessionStart
	}

	var earliest *time.Time
	for i := range booking.Sessions {
		t := booking.Sessions[i].StartTime
		if earliest == nil || t.Before(*earliest) {
			earliest = &t
		}
	}
	return earliest
}

func hoursUntil(now time.Time, start *time.Time) int64 {
	if start == nil {
		return 0
	}
	return int64(start.Sub(now).Hours())
}
