package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending        BookingStatus = "pending"         // awaiting teacher approval
	BookingStatusPendingPayment BookingStatus = "pending_payment" // approved, awaiting payment
	BookingStatusConfirmed      BookingStatus = "confirmed"       // paid
	BookingStatusCompleted      BookingStatus = "completed"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusRejected       BookingStatus = "rejected" // declined by teacher
	BookingStatusExpired        BookingStatus = "expired"  // payment window lapsed
	BookingStatusNoShow         BookingStatus = "no_show"
)

// CancellationPolicy is copied onto a booking at creation time, so later
// policy changes never affect existing bookings.
type CancellationPolicy struct {
	HoursBeforeSession int    `json:"hours_before_session"`
	RefundPercentage   int    `json:"refund_percentage"`
	Description        string `json:"description"`
}

// SessionTime is one entry of a multi-session (batch) booking.
type SessionTime struct {
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Amount    decimal.Decimal `json:"amount"`
}

type Booking struct {
	ID           string `json:"id"`
	SessionID    string `json:"session_id"`
	StudentID    string `json:"student_id"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	TeacherID    string `json:"teacher_id"`

	Subject         string     `json:"subject,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	SessionStart    *time.Time `json:"session_start_time,omitempty"`
	SessionEnd      *time.Time `json:"session_end_time,omitempty"`

	// Sessions is set instead of SessionStart/SessionEnd for batch bookings.
	// The booking still has one status and one total amount.
	Sessions []SessionTime `json:"sessions,omitempty"`

	Status   BookingStatus   `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`

	PaymentID     string `json:"payment_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`

	BookedAt    time.Time  `json:"booked_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CancellationReason string              `json:"cancellation_reason,omitempty"`
	CancelledBy        string              `json:"cancelled_by,omitempty"`
	CancellationPolicy *CancellationPolicy `json:"cancellation_policy,omitempty"`

	RefundAmount        *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundTransactionID string           `json:"refund_transaction_id,omitempty"`
	RefundedAt          *time.Time       `json:"refunded_at,omitempty"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultCancellationPolicy is the policy stamped onto new bookings.
func DefaultCancellationPolicy() *CancellationPolicy {
	return &CancellationPolicy{
		HoursBeforeSession: 24,
		RefundPercentage:   100,
		Description:        "Full refund if cancelled 24 hours before session",
	}
}
