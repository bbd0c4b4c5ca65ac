package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tcon/booking-service/internal/model"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `
	id, session_id, student_id, student_name, student_email, teacher_id,
	subject, duration_minutes, session_start, session_end, sessions,
	status, amount, currency, payment_id, transaction_id,
	booked_at, confirmed_at, cancelled_at, completed_at,
	cancellation_reason, cancelled_by, cancellation_policy,
	refund_amount, refund_transaction_id, refunded_at,
	notes, created_at, updated_at
`

func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	sessions, err := marshalOrNil(booking.Sessions, len(booking.Sessions) > 0)
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	policy, err := marshalOrNil(booking.CancellationPolicy, booking.CancellationPolicy != nil)
	if err != nil {
		return fmt.Errorf("marshal cancellation policy: %w", err)
	}

	query := `
		INSERT INTO bookings (
			id, session_id, student_id, student_name, student_email, teacher_id,
			subject, duration_minutes, session_start, session_end, sessions,
			status, amount, currency, booked_at, cancellation_policy, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`

	err = r.pool.QueryRow(
		ctx, query,
		booking.ID,
		booking.SessionID,
		booking.StudentID,
		booking.StudentName,
		booking.StudentEmail,
		booking.TeacherID,
		booking.Subject,
		booking.DurationMinutes,
		booking.SessionStart,
		booking.SessionEnd,
		sessions,
		booking.Status,
		booking.Amount,
		booking.Currency,
		booking.BookedAt,
		policy,
		booking.Notes,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	var refund *decimal.Decimal
	if booking.RefundAmount != nil {
		refund = booking.RefundAmount
	}

	query := `
		UPDATE bookings
		SET status = $1,
		    payment_id = $2,
		    transaction_id = $3,
		    confirmed_at = $4,
		    cancelled_at = $5,
		    completed_at = $6,
		    cancellation_reason = $7,
		    cancelled_by = $8,
		    refund_amount = $9,
		    refund_transaction_id = $10,
		    refunded_at = $11,
		    notes = $12,
		    updated_at = now()
		WHERE id = $13
	`

	tag, err := r.pool.Exec(ctx, query,
		booking.Status,
		booking.PaymentID,
		booking.TransactionID,
		booking.ConfirmedAt,
		booking.CancelledAt,
		booking.CompletedAt,
		booking.CancellationReason,
		booking.CancelledBy,
		refund,
		booking.RefundTransactionID,
		booking.RefundedAt,
		booking.Notes,
		booking.ID,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking not found")
	}
	return nil
}

func (r *BookingRepository) GetByStudentID(ctx context.Context, studentID string) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE student_id = $1 ORDER BY created_at DESC`
	return r.queryBookings(ctx, query, studentID)
}

func (r *BookingRepository) GetByTeacherID(ctx context.Context, teacherID string) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE teacher_id = $1 ORDER BY created_at DESC`
	return r.queryBookings(ctx, query, teacherID)
}

func (r *BookingRepository) GetBySessionID(ctx context.Context, sessionID string) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE session_id = $1 ORDER BY created_at DESC`
	return r.queryBookings(ctx, query, sessionID)
}

func (r *BookingRepository) GetByTeacherIDAndStatus(ctx context.Context, teacherID string, status model.BookingStatus) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE teacher_id = $1 AND status = $2 ORDER BY created_at ASC`
	return r.queryBookings(ctx, query, teacherID, status)
}

func (r *BookingRepository) GetByStudentIDInRange(ctx context.Context, studentID string, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE student_id = $1 AND session_start >= $2 AND session_start < $3
		ORDER BY session_start ASC
	`
	return r.queryBookings(ctx, query, studentID, from, to)
}

func (r *BookingRepository) ExistsBySessionAndStudent(ctx context.Context, sessionID, studentID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE session_id = $1 AND student_id = $2
			  AND status NOT IN ('cancelled', 'rejected', 'expired')
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, sessionID, studentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check booking exists: %w", err)
	}
	return exists, nil
}

func (r *BookingRepository) CountBySessionAndStatus(ctx context.Context, sessionID string, status model.BookingStatus) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE session_id = $1 AND status = $2`

	var count int64
	if err := r.pool.QueryRow(ctx, query, sessionID, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

func (r *BookingRepository) GetActiveByTeacherInRange(ctx context.Context, teacherID string, from, to time.Time) ([]*model.Booking, error) {
	// Batch bookings carry their times in the sessions jsonb instead of the
	// window columns; return them all and let the caller intersect per entry.
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE teacher_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND ((session_start < $3 AND session_end > $2) OR sessions IS NOT NULL)
		ORDER BY created_at ASC
	`
	return r.queryBookings(ctx, query, teacherID, from, to)
}

func (r *BookingRepository) GetStalePendingPayment(ctx context.Context, olderThan time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending_payment' AND updated_at < $1
		ORDER BY updated_at ASC
	`
	return r.queryBookings(ctx, query, olderThan)
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		booking      model.Booking
		sessionsJSON []byte
		policyJSON   []byte
		refund       decimal.NullDecimal
	)

	err := row.Scan(
		&booking.ID,
		&booking.SessionID,
		&booking.StudentID,
		&booking.StudentName,
		&booking.StudentEmail,
		&booking.TeacherID,
		&booking.Subject,
		&booking.DurationMinutes,
		&booking.SessionStart,
		&booking.SessionEnd,
		&sessionsJSON,
		&booking.Status,
		&booking.Amount,
		&booking.Currency,
		&booking.PaymentID,
		&booking.TransactionID,
		&booking.BookedAt,
		&booking.ConfirmedAt,
		&booking.CancelledAt,
		&booking.CompletedAt,
		&booking.CancellationReason,
		&booking.CancelledBy,
		&policyJSON,
		&refund,
		&booking.RefundTransactionID,
		&booking.RefundedAt,
		&booking.Notes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(sessionsJSON) > 0 {
		if err := json.Unmarshal(sessionsJSON, &booking.Sessions); err != nil {
			return nil, fmt.Errorf("unmarshal sessions: %w", err)
		}
	}
	if len(policyJSON) > 0 {
		booking.CancellationPolicy = &model.CancellationPolicy{}
		if err := json.Unmarshal(policyJSON, booking.CancellationPolicy); err != nil {
			return nil, fmt.Errorf("unmarshal cancellation policy: %w", err)
		}
	}
	if refund.Valid {
		booking.RefundAmount = &refund.Decimal
	}

	return &booking, nil
}

func marshalOrNil(v any, present bool) ([]byte, error) {
	if !present {
		return nil, nil
	}
	return json.Marshal(v)
}
