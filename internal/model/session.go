package model

import "time"

type SessionType string

const (
	SessionTypeOneOnOne SessionType = "one_on_one"
	SessionTypeGroup    SessionType = "group"
)

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// ClassSession is the bookable resource. Capacity is MaxParticipants,
// usually 1 for one-on-one lessons.
type ClassSession struct {
	ID              string        `json:"id"`
	SessionType     SessionType   `json:"session_type"`
	TeacherID       string        `json:"teacher_id"`
	StudentID       string        `json:"student_id,omitempty"` // set for one-on-one sessions
	BookingID       string        `json:"booking_id,omitempty"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Status          SessionStatus `json:"status"`
	ScheduledStart  time.Time     `json:"scheduled_start_time"`
	ScheduledEnd    time.Time     `json:"scheduled_end_time"`
	DurationMinutes int           `json:"duration_minutes"`
	MaxParticipants int           `json:"max_participants"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
