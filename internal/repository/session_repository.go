package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tcon/booking-service/internal/model"
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `
	id, session_type, teacher_id, student_id, booking_id, title, description,
	status, scheduled_start, scheduled_end, duration_minutes, max_participants,
	created_at, updated_at
`

func (r *SessionRepository) Create(ctx context.Context, session *model.ClassSession) error {
	query := `
		INSERT INTO class_sessions (
			id, session_type, teacher_id, student_id, title, description,
			status, scheduled_start, scheduled_end, duration_minutes, max_participants
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		session.ID,
		session.SessionType,
		session.TeacherID,
		session.StudentID,
		session.Title,
		session.Description,
		session.Status,
		session.ScheduledStart,
		session.ScheduledEnd,
		session.DurationMinutes,
		session.MaxParticipants,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.ClassSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM class_sessions WHERE id = $1`

	session, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) GetByTeacherInRange(ctx context.Context, teacherID string, from, to time.Time) ([]*model.ClassSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM class_sessions
		WHERE teacher_id = $1 AND scheduled_start < $3 AND scheduled_end > $2
		ORDER BY scheduled_start ASC
	`

	rows, err := r.pool.Query(ctx, query, teacherID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get sessions by teacher: %w", err)
	}
	defer rows.Close()

	var sessions []*model.ClassSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) SetBookingID(ctx context.Context, sessionID, bookingID string) error {
	query := `UPDATE class_sessions SET booking_id = $1, updated_at = now() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, bookingID, sessionID)
	if err != nil {
		return fmt.Errorf("set session booking id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

func (r *SessionRepository) UpdateStatus(ctx context.Context, sessionID string, status model.SessionStatus) error {
	query := `UPDATE class_sessions SET status = $1, updated_at = now() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, status, sessionID)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

func scanSession(row pgx.Row) (*model.ClassSession, error) {
	var session model.ClassSession
	err := row.Scan(
		&session.ID,
		&session.SessionType,
		&session.TeacherID,
		&session.StudentID,
		&session.BookingID,
		&session.Title,
		&session.Description,
		&session.Status,
		&session.ScheduledStart,
		&session.ScheduledEnd,
		&session.DurationMinutes,
		&session.MaxParticipants,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
