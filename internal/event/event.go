package event

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeBookingCreated   = "BOOKING_CREATED"
	TypeBookingApproved  = "BOOKING_APPROVED"
	TypeBookingRejected  = "BOOKING_REJECTED"
	TypeBookingConfirmed = "BOOKING_CONFIRMED"
	TypeBookingCancelled = "BOOKING_CANCELLED"
	TypeBookingCompleted = "BOOKING_COMPLETED"
	TypeBookingExpired   = "BOOKING_EXPIRED"
	TypeBookingNoShow    = "BOOKING_NO_SHOW"
)

// BookingEvent is the payload published on every lifecycle transition.
type BookingEvent struct {
	EventType          string           `json:"event_type"`
	BookingID          string           `json:"booking_id"`
	SessionID          string           `json:"session_id,omitempty"`
	StudentID          string           `json:"student_id"`
	TeacherID          string           `json:"teacher_id"`
	SessionStartTime   *time.Time       `json:"session_start_time,omitempty"`
	CancellationReason string           `json:"cancellation_reason,omitempty"`
	RefundAmount       *decimal.Decimal `json:"refund_amount,omitempty"`
	Timestamp          time.Time        `json:"timestamp"`
}

// Sink delivers events fire-and-forget. Implementations log failures and
// never propagate them: a publish error must not roll back a state
// transition that already persisted.
type Sink interface {
	Publish(ctx context.Context, e BookingEvent)
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Publish(context.Context, BookingEvent) {}
