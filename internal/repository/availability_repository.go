package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tcon/booking-service/internal/model"
)

type AvailabilityRepository struct {
	pool *pgxpool.Pool
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

func (r *AvailabilityRepository) GetWeekly(ctx context.Context, teacherID string) (*model.WeeklyAvailability, error) {
	query := `
		SELECT id, teacher_id, timezone, weekly_slots, buffer_time_minutes,
		       max_sessions_per_day, created_at, updated_at
		FROM teacher_availability
		WHERE teacher_id = $1
	`

	var (
		availability model.WeeklyAvailability
		weeklyJSON   []byte
	)
	err := r.pool.QueryRow(ctx, query, teacherID).Scan(
		&availability.ID,
		&availability.TeacherID,
		&availability.Timezone,
		&weeklyJSON,
		&availability.BufferTimeMinutes,
		&availability.MaxSessionsPerDay,
		&availability.CreatedAt,
		&availability.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get weekly availability: %w", err)
	}

	if len(weeklyJSON) > 0 {
		if err := json.Unmarshal(weeklyJSON, &availability.Weekly); err != nil {
			return nil, fmt.Errorf("unmarshal weekly slots: %w", err)
		}
	}
	return &availability, nil
}

func (r *AvailabilityRepository) SaveWeekly(ctx context.Context, availability *model.WeeklyAvailability) error {
	weeklyJSON, err := json.Marshal(availability.Weekly)
	if err != nil {
		return fmt.Errorf("marshal weekly slots: %w", err)
	}

	query := `
		INSERT INTO teacher_availability (
			id, teacher_id, timezone, weekly_slots, buffer_time_minutes, max_sessions_per_day
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (teacher_id) DO UPDATE
		SET timezone = EXCLUDED.timezone,
		    weekly_slots = EXCLUDED.weekly_slots,
		    buffer_time_minutes = EXCLUDED.buffer_time_minutes,
		    max_sessions_per_day = EXCLUDED.max_sessions_per_day,
		    updated_at = now()
		RETURNING created_at, updated_at
	`

	err = r.pool.QueryRow(ctx, query,
		availability.ID,
		availability.TeacherID,
		availability.Timezone,
		weeklyJSON,
		availability.BufferTimeMinutes,
		availability.MaxSessionsPerDay,
	).Scan(&availability.CreatedAt, &availability.UpdatedAt)

	if err != nil {
		return fmt.Errorf("save weekly availability: %w", err)
	}
	return nil
}

func (r *AvailabilityRepository) DeleteWeekly(ctx context.Context, teacherID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM teacher_availability WHERE teacher_id = $1`, teacherID)
	if err != nil {
		return fmt.Errorf("delete weekly availability: %w", err)
	}
	return nil
}

func (r *AvailabilityRepository) UpsertDate(ctx context.Context, availability *model.DateSpecificAvailability) error {
	slotsJSON, err := json.Marshal(availability.TimeSlots)
	if err != nil {
		return fmt.Errorf("marshal time slots: %w", err)
	}

	query := `
		INSERT INTO date_availability (
			id, teacher_id, date, time_slots, timezone, buffer_time_minutes
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (teacher_id, date) DO UPDATE
		SET time_slots = EXCLUDED.time_slots,
		    timezone = EXCLUDED.timezone,
		    buffer_time_minutes = EXCLUDED.buffer_time_minutes,
		    updated_at = now()
		RETURNING created_at, updated_at
	`

	err = r.pool.QueryRow(ctx, query,
		availability.ID,
		availability.TeacherID,
		availability.Date,
		slotsJSON,
		availability.Timezone,
		availability.BufferTimeMinutes,
	).Scan(&availability.CreatedAt, &availability.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert date availability: %w", err)
	}
	return nil
}

func (r *AvailabilityRepository) GetDate(ctx context.Context, teacherID string, date time.Time) (*model.DateSpecificAvailability, error) {
	query := `
		SELECT id, teacher_id, date, time_slots, timezone, buffer_time_minutes, created_at, updated_at
		FROM date_availability
		WHERE teacher_id = $1 AND date = $2
	`

	availability, err := scanDateAvailability(r.pool.QueryRow(ctx, query, teacherID, date))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get date availability: %w", err)
	}
	return availability, nil
}

func (r *AvailabilityRepository) GetDatesInRange(ctx context.Context, teacherID string, from, to time.Time) ([]*model.DateSpecificAvailability, error) {
	query := `
		SELECT id, teacher_id, date, time_slots, timezone, buffer_time_minutes, created_at, updated_at
		FROM date_availability
		WHERE teacher_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, teacherID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get date availability in range: %w", err)
	}
	defer rows.Close()

	var result []*model.DateSpecificAvailability
	for rows.Next() {
		availability, err := scanDateAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("scan date availability: %w", err)
		}
		result = append(result, availability)
	}
	return result, rows.Err()
}

func (r *AvailabilityRepository) DeleteDate(ctx context.Context, teacherID string, date time.Time) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM date_availability WHERE teacher_id = $1 AND date = $2`, teacherID, date)
	if err != nil {
		return fmt.Errorf("delete date availability: %w", err)
	}
	return nil
}

func scanDateAvailability(row pgx.Row) (*model.DateSpecificAvailability, error) {
	var (
		availability model.DateSpecificAvailability
		slotsJSON    []byte
	)
	err := row.Scan(
		&availability.ID,
		&availability.TeacherID,
		&availability.Date,
		&slotsJSON,
		&availability.Timezone,
		&availability.BufferTimeMinutes,
		&availability.CreatedAt,
		&availability.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(slotsJSON) > 0 {
		if err := json.Unmarshal(slotsJSON, &availability.TimeSlots); err != nil {
			return nil, fmt.Errorf("unmarshal time slots: %w", err)
		}
	}
	return &availability, nil
}
