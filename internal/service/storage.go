package service

import (
	"context"
	"time"

	"github.com/tcon/booking-service/internal/model"
)

// Storage collaborators. Lookups are keyed only; absent records come back as
// (nil, nil) rather than an error, matching the repository layer.

type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	Update(ctx context.Context, booking *model.Booking) error

	GetByStudentID(ctx context.Context, studentID string) ([]*model.Booking, error)
	GetByTeacherID(ctx context.Context, teacherID string) ([]*model.Booking, error)
	GetBySessionID(ctx context.Context, sessionID string) ([]*model.Booking, error)
	GetByTeacherIDAndStatus(ctx context.Context, teacherID string, status model.BookingStatus) ([]*model.Booking, error)
	GetByStudentIDInRange(ctx context.Context, studentID string, from, to time.Time) ([]*model.Booking, error)

	ExistsBySessionAndStudent(ctx context.Context, sessionID, studentID string) (bool, error)
	CountBySessionAndStatus(ctx context.Context, sessionID string, status model.BookingStatus) (int64, error)

	// GetActiveByTeacherInRange returns PENDING and CONFIRMED bookings whose
	// session window intersects [from, to], plus all active batch bookings;
	// callers intersect batch entries individually.
	GetActiveByTeacherInRange(ctx context.Context, teacherID string, from, to time.Time) ([]*model.Booking, error)

	// GetStalePendingPayment returns PENDING_PAYMENT bookings not touched
	// since olderThan.
	GetStalePendingPayment(ctx context.Context, olderThan time.Time) ([]*model.Booking, error)
}

type SessionStore interface {
	Create(ctx context.Context, session *model.ClassSession) error
	GetByID(ctx context.Context, id string) (*model.ClassSession, error)
	GetByTeacherInRange(ctx context.Context, teacherID string, from, to time.Time) ([]*model.ClassSession, error)
	SetBookingID(ctx context.Context, sessionID, bookingID string) error
	UpdateStatus(ctx context.Context, sessionID string, status model.SessionStatus) error
}

type AvailabilityStore interface {
	GetWeekly(ctx context.Context, teacherID string) (*model.WeeklyAvailability, error)
	SaveWeekly(ctx context.Context, availability *model.WeeklyAvailability) error
	DeleteWeekly(ctx context.Context, teacherID string) error

	UpsertDate(ctx context.Context, availability *model.DateSpecificAvailability) error
	GetDate(ctx context.Context, teacherID string, date time.Time) (*model.DateSpecificAvailability, error)
	GetDatesInRange(ctx context.Context, teacherID string, from, to time.Time) ([]*model.DateSpecificAvailability, error)
	DeleteDate(ctx context.Context, teacherID string, date time.Time) error
}
