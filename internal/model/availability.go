package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeSlot is a half-open wall-clock interval on a single day, stored as
// "HH:MM" strings. IsAvailable defaults to true when unset.
type TimeSlot struct {
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable *bool  `json:"is_available,omitempty"`
}

// Available reports the slot's availability flag, defaulting to true.
func (s TimeSlot) Available() bool {
	return s.IsAvailable == nil || *s.IsAvailable
}

// Clock parses the slot's boundaries as hours and minutes.
func (s TimeSlot) Clock() (startH, startM, endH, endM int, err error) {
	start, err := time.Parse("15:04", s.StartTime)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("parse slot start %q: %w", s.StartTime, err)
	}
	end, err := time.Parse("15:04", s.EndTime)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("parse slot end %q: %w", s.EndTime, err)
	}
	return start.Hour(), start.Minute(), end.Hour(), end.Minute(), nil
}

// WeeklySlots maps a day of week to that day's time slots. It marshals with
// uppercase day names so stored documents stay readable.
type WeeklySlots map[time.Weekday][]TimeSlot

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "SUNDAY",
	time.Monday:    "MONDAY",
	time.Tuesday:   "TUESDAY",
	time.Wednesday: "WEDNESDAY",
	time.Thursday:  "THURSDAY",
	time.Friday:    "FRIDAY",
	time.Saturday:  "SATURDAY",
}

func (w WeeklySlots) MarshalJSON() ([]byte, error) {
	out := make(map[string][]TimeSlot, len(w))
	for day, slots := range w {
		out[weekdayNames[day]] = slots
	}
	return json.Marshal(out)
}

func (w *WeeklySlots) UnmarshalJSON(data []byte) error {
	var raw map[string][]TimeSlot
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make(WeeklySlots, len(raw))
	for name, slots := range raw {
		day, ok := parseWeekday(name)
		if !ok {
			return fmt.Errorf("unknown weekday %q", name)
		}
		result[day] = slots
	}
	*w = result
	return nil
}

// ParseWeekday maps an uppercase day name ("MONDAY") to its weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	return parseWeekday(name)
}

func parseWeekday(name string) (time.Weekday, bool) {
	for day, n := range weekdayNames {
		if n == name {
			return day, true
		}
	}
	return 0, false
}

// WeeklyAvailability is a teacher's recurring weekly pattern. Within one
// day's slot set no two slots may overlap; the invariant is enforced on
// mutation, not retroactively on stored data. BufferTimeMinutes and
// MaxSessionsPerDay are advisory metadata.
type WeeklyAvailability struct {
	ID                string      `json:"id"`
	TeacherID         string      `json:"teacher_id"`
	Timezone          string      `json:"timezone"`
	Weekly            WeeklySlots `json:"weekly_availability"`
	BufferTimeMinutes int         `json:"buffer_time_minutes"`
	MaxSessionsPerDay *int        `json:"max_sessions_per_day,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// DateSpecificAvailability overrides (does not merge with) the weekly
// pattern for one calendar date. Unique per (teacher, date).
type DateSpecificAvailability struct {
	ID                string     `json:"id"`
	TeacherID         string     `json:"teacher_id"`
	Date              time.Time  `json:"date"` // date component only
	TimeSlots         []TimeSlot `json:"time_slots"`
	Timezone          string     `json:"timezone,omitempty"`
	BufferTimeMinutes int        `json:"buffer_time_minutes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AvailabilitySlot is one entry of a computed availability range.
type AvailabilitySlot struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
	Reason      string    `json:"reason,omitempty"`
}
