package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tcon/booking-service/internal/model"
)

// conflictPad absorbs boundary rounding when matching candidate slots
// against existing bookings and sessions.
const conflictPad = time.Minute

const defaultBufferMinutes = 15

type AvailabilityService struct {
	availabilityStore AvailabilityStore
	bookingStore      BookingStore
	sessionStore      SessionStore
	logger            *zap.Logger
	now               func() time.Time
}

func NewAvailabilityService(
	availabilityStore AvailabilityStore,
	bookingStore BookingStore,
	sessionStore SessionStore,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		availabilityStore: availabilityStore,
		bookingStore:      bookingStore,
		sessionStore:      sessionStore,
		logger:            logger,
		now:               time.Now,
	}
}

// busyInterval is an occupied stretch of a teacher's calendar.
type busyInterval struct {
	start  time.Time
	end    time.Time
	reason string
}

// ComputeAvailability produces the teacher's open slots for [rangeStart,
// rangeEnd]: the weekly pattern, overridden per date by date-specific
// entries, minus intervals consumed by PENDING/CONFIRMED bookings and
// scheduled sessions. A teacher with no configured schedule degrades to a
// busy-only list instead of failing. Output is ordered by ascending date,
// then ascending slot start.
func (s *AvailabilityService) ComputeAvailability(ctx context.Context, teacherID string, rangeStart, rangeEnd time.Time) ([]model.AvailabilitySlot, error) {
	if rangeEnd.Before(rangeStart) {
		return nil, ErrInvalidRange
	}

	busy, err := s.collectBusyIntervals(ctx, teacherID, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}

	weekly, err := s.availabilityStore.GetWeekly(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get weekly availability: %w", err)
	}

	if weekly == nil {
		s.logger.Info("teacher has no availability configured, returning busy intervals only",
			zap.String("teacher_id", teacherID))
		return busyOnlySlots(busy), nil
	}

	overrides, err := s.availabilityStore.GetDatesInRange(ctx, teacherID, dateOf(rangeStart), dateOf(rangeEnd))
	if err != nil {
		return nil, fmt.Errorf("get date-specific availability: %w", err)
	}
	overrideByDate := make(map[string][]model.TimeSlot, len(overrides))
	for _, o := range overrides {
		overrideByDate[o.Date.Format("2006-01-02")] = o.TimeSlots
	}

	loc := rangeStart.Location()
	var result []model.AvailabilitySlot

	for date := dateOf(rangeStart); !date.After(dateOf(rangeEnd)); date = date.AddDate(0, 0, 1) {
		slots, ok := overrideByDate[date.Format("2006-01-02")]
		if !ok {
			slots = weekly.Weekly[date.Weekday()]
		}

		for _, slot := range slots {
			startH, startM, endH, endM, err := slot.Clock()
			if err != nil {
				return nil, fmt.Errorf("invalid slot for teacher %s: %w", teacherID, err)
			}

			absStart := time.Date(date.Year(), date.Month(), date.Day(), startH, startM, 0, 0, loc)
			absEnd := time.Date(date.Year(), date.Month(), date.Day(), endH, endM, 0, 0, loc)
			if !absStart.Before(absEnd) {
				continue
			}

			// Skip slots entirely outside the query range.
			if !absEnd.After(rangeStart) || !absStart.Before(rangeEnd) {
				continue
			}

			out := model.AvailabilitySlot{StartTime: absStart, EndTime: absEnd, IsAvailable: true}

			if !slot.Available() {
				out.IsAvailable = false
				out.Reason = "Blocked by teacher"
			} else if reason := conflict(absStart, absEnd, busy); reason != "" {
				out.IsAvailable = false
				out.Reason = reason
			}

			result = append(result, out)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})

	return result, nil
}

func (s *AvailabilityService) collectBusyIntervals(ctx context.Context, teacherID string, from, to time.Time) ([]busyInterval, error) {
	var busy []busyInterval

	bookings, err := s.bookingStore.GetActiveByTeacherInRange(ctx, teacherID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get active bookings: %w", err)
	}
	for _, b := range bookings {
		if b.SessionStart != nil && b.SessionEnd != nil {
			busy = append(busy, busyInterval{start: *b.SessionStart, end: *b.SessionEnd, reason: "Existing booking"})
		}
		for _, st := range b.Sessions {
			busy = append(busy, busyInterval{start: st.StartTime, end: st.EndTime, reason: "Existing booking"})
		}
	}

	sessions, err := s.sessionStore.GetByTeacherInRange(ctx, teacherID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}
	for _, sess := range sessions {
		if sess.Status != model.SessionStatusScheduled {
			continue
		}
		busy = append(busy, busyInterval{start: sess.ScheduledStart, end: sess.ScheduledEnd, reason: "Session scheduled"})
	}

	return busy, nil
}

// conflict returns a reason when [start, end) intersects any busy interval,
// with a one-minute pad on both sides.
func conflict(start, end time.Time, busy []busyInterval) string {
	for _, b := range busy {
		overlaps, err := model.Overlaps(start, end, b.start.Add(-conflictPad), b.end.Add(conflictPad))
		if err != nil {
			continue
		}
		if overlaps {
			return b.reason
		}
	}
	return ""
}

func busyOnlySlots(busy []busyInterval) []model.AvailabilitySlot {
	slots := make([]model.AvailabilitySlot, 0, len(busy))
	for _, b := range busy {
		slots = append(slots, model.AvailabilitySlot{
			StartTime:   b.start,
			EndTime:     b.end,
			IsAvailable: false,
			Reason:      b.reason,
		})
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
	return slots
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SetWeeklyAvailability replaces the teacher's recurring pattern. Slots
// without an availability flag default to available.
func (s *AvailabilityService) SetWeeklyAvailability(ctx context.Context, teacherID string, weekly model.WeeklySlots, timezone string, bufferMinutes int, maxSessionsPerDay *int) (*model.WeeklyAvailability, error) {
	for day, slots := range weekly {
		if err := validateDaySlots(slots); err != nil {
			return nil, fmt.Errorf("%s: %w", day, err)
		}
	}

	availability, err := s.availabilityStore.GetWeekly(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get weekly availability: %w", err)
	}
	if availability == nil {
		availability = &model.WeeklyAvailability{
			ID:        uuid.NewString(),
			TeacherID: teacherID,
		}
	}

	if timezone == "" {
		timezone = "UTC"
	}
	if bufferMinutes <= 0 {
		bufferMinutes = defaultBufferMinutes
	}

	availability.Weekly = defaultSlotFlags(weekly)
	availability.Timezone = timezone
	availability.BufferTimeMinutes = bufferMinutes
	availability.MaxSessionsPerDay = maxSessionsPerDay

	if err := s.availabilityStore.SaveWeekly(ctx, availability); err != nil {
		return nil, fmt.Errorf("save weekly availability: %w", err)
	}

	s.logger.Info("weekly availability set",
		zap.String("teacher_id", teacherID),
		zap.Int("days_configured", len(availability.Weekly)))

	return availability, nil
}

// AddTimeSlot appends one slot to a weekday, rejecting overlaps with the
// day's existing slots.
func (s *AvailabilityService) AddTimeSlot(ctx context.Context, teacherID string, day time.Weekday, slot model.TimeSlot) (*model.WeeklyAvailability, error) {
	availability, err := s.availabilityStore.GetWeekly(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get weekly availability: %w", err)
	}
	if availability == nil {
		return nil, ErrNotFound
	}

	if availability.Weekly == nil {
		availability.Weekly = model.WeeklySlots{}
	}
	daySlots := availability.Weekly[day]

	for _, existing := range daySlots {
		overlaps, err := clockSlotsOverlap(existing, slot)
		if err != nil {
			return nil, err
		}
		if overlaps {
			return nil, ErrSlotOverlap
		}
	}

	if slot.IsAvailable == nil {
		t := true
		slot.IsAvailable = &t
	}
	availability.Weekly[day] = append(daySlots, slot)

	if err := s.availabilityStore.SaveWeekly(ctx, availability); err != nil {
		return nil, fmt.Errorf("save weekly availability: %w", err)
	}

	s.logger.Info("time slot added",
		zap.String("teacher_id", teacherID),
		zap.String("day", day.String()),
		zap.String("start", slot.StartTime),
		zap.String("end", slot.EndTime))

	return availability, nil
}

// RemoveTimeSlot deletes slots matching the given boundaries from a weekday.
func (s *AvailabilityService) RemoveTimeSlot(ctx context.Context, teacherID string, day time.Weekday, slot model.TimeSlot) (*model.WeeklyAvailability, error) {
	availability, err := s.availabilityStore.GetWeekly(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get weekly availability: %w", err)
	}
	if availability == nil {
		return nil, ErrNotFound
	}

	daySlots := availability.Weekly[day]
	kept := daySlots[:0]
	for _, existing := range daySlots {
		if existing.StartTime == slot.StartTime && existing.EndTime == slot.EndTime {
			continue
		}
		kept = append(kept, existing)
	}
	availability.Weekly[day] = kept

	if err := s.availabilityStore.SaveWeekly(ctx, availability); err != nil {
		return nil, fmt.Errorf("save weekly availability: %w", err)
	}

	return availability, nil
}

// GetWeeklyAvailability returns the teacher's pattern, or an empty default
// when none is configured.
func (s *AvailabilityService) GetWeeklyAvailability(ctx context.Context, teacherID string) (*model.WeeklyAvailability, error) {
	availability, err := s.availabilityStore.GetWeekly(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get weekly availability: %w", err)
	}
	if availability == nil {
		return &model.WeeklyAvailability{
			TeacherID:         teacherID,
			Timezone:          "UTC",
			Weekly:            model.WeeklySlots{},
			BufferTimeMinutes: defaultBufferMinutes,
		}, nil
	}
	return availability, nil
}

func (s *AvailabilityService) DeleteWeeklyAvailability(ctx context.Context, teacherID string) error {
	if err := s.availabilityStore.DeleteWeekly(ctx, teacherID); err != nil {
		return fmt.Errorf("delete weekly availability: %w", err)
	}
	s.logger.Info("weekly availability deleted", zap.String("teacher_id", teacherID))
	return nil
}

// DateEntry is one date's override in a batch save.
type DateEntry struct {
	Date      time.Time
	TimeSlots []model.TimeSlot
}

// SaveDateSpecificBatch upserts date overrides; each entry fully replaces
// the weekly pattern for its date.
func (s *AvailabilityService) SaveDateSpecificBatch(ctx context.Context, teacherID string, entries []DateEntry, timezone string, bufferMinutes int) error {
	for _, entry := range entries {
		if err := validateDaySlots(entry.TimeSlots); err != nil {
			return fmt.Errorf("%s: %w", entry.Date.Format("2006-01-02"), err)
		}

		// Re-saving a date keeps the existing entry's identity.
		id := uuid.NewString()
		existing, err := s.availabilityStore.GetDate(ctx, teacherID, dateOf(entry.Date))
		if err != nil {
			return fmt.Errorf("get date availability: %w", err)
		}
		if existing != nil {
			id = existing.ID
		}

		availability := &model.DateSpecificAvailability{
			ID:                id,
			TeacherID:         teacherID,
			Date:              dateOf(entry.Date),
			TimeSlots:         defaultFlags(entry.TimeSlots),
			Timezone:          timezone,
			BufferTimeMinutes: bufferMinutes,
		}
		if err := s.availabilityStore.UpsertDate(ctx, availability); err != nil {
			return fmt.Errorf("upsert date availability: %w", err)
		}
	}

	s.logger.Info("date-specific availability saved",
		zap.String("teacher_id", teacherID),
		zap.Int("dates", len(entries)))
	return nil
}

// GetDateSpecificAvailability returns overrides for the next six months,
// keyed by date.
func (s *AvailabilityService) GetDateSpecificAvailability(ctx context.Context, teacherID string) (map[string][]model.TimeSlot, error) {
	today := dateOf(s.now())
	entries, err := s.availabilityStore.GetDatesInRange(ctx, teacherID, today, today.AddDate(0, 6, 0))
	if err != nil {
		return nil, fmt.Errorf("get date availability: %w", err)
	}

	result := make(map[string][]model.TimeSlot, len(entries))
	for _, e := range entries {
		result[e.Date.Format("2006-01-02")] = e.TimeSlots
	}
	return result, nil
}

func (s *AvailabilityService) DeleteDateSpecific(ctx context.Context, teacherID string, date time.Time) error {
	if err := s.availabilityStore.DeleteDate(ctx, teacherID, dateOf(date)); err != nil {
		return fmt.Errorf("delete date availability: %w", err)
	}
	return nil
}

// validateDaySlots rejects a slot set containing overlapping entries.
func validateDaySlots(slots []model.TimeSlot) error {
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			overlaps, err := clockSlotsOverlap(slots[i], slots[j])
			if err != nil {
				return err
			}
			if overlaps {
				return ErrSlotOverlap
			}
		}
	}
	return nil
}

func clockSlotsOverlap(a, b model.TimeSlot) (bool, error) {
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	aWall, err := wallClock(base, a)
	if err != nil {
		return false, err
	}
	bWall, err := wallClock(base, b)
	if err != nil {
		return false, err
	}
	return model.Overlaps(aWall[0], aWall[1], bWall[0], bWall[1])
}

func wallClock(base time.Time, slot model.TimeSlot) ([2]time.Time, error) {
	startH, startM, endH, endM, err := slot.Clock()
	if err != nil {
		return [2]time.Time{}, err
	}
	return [2]time.Time{
		base.Add(time.Duration(startH)*time.Hour + time.Duration(startM)*time.Minute),
		base.Add(time.Duration(endH)*time.Hour + time.Duration(endM)*time.Minute),
	}, nil
}

func defaultSlotFlags(weekly model.WeeklySlots) model.WeeklySlots {
	out := make(model.WeeklySlots, len(weekly))
	for day, slots := range weekly {
		out[day] = defaultFlags(slots)
	}
	return out
}

func defaultFlags(slots []model.TimeSlot) []model.TimeSlot {
	out := make([]model.TimeSlot, len(slots))
	for i, slot := range slots {
		if slot.IsAvailable == nil {
			t := true
			slot.IsAvailable = &t
		}
		out[i] = slot
	}
	return out
}
