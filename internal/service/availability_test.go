package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tcon/booking-service/internal/model"
)

type availabilityFixture struct {
	svc      *AvailabilityService
	store    *fakeAvailabilityStore
	bookings *fakeBookingStore
	sessions *fakeSessionStore
	now      time.Time
}

func newAvailabilityFixture() *availabilityFixture {
	f := &availabilityFixture{
		store:    newFakeAvailabilityStore(),
		bookings: newFakeBookingStore(),
		sessions: newFakeSessionStore(),
		now:      time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), // a Monday
	}
	f.svc = NewAvailabilityService(f.store, f.bookings, f.sessions, zap.NewNop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func slot(start, end string) model.TimeSlot {
	return model.TimeSlot{StartTime: start, EndTime: end}
}

func (f *availabilityFixture) seedWeekly(t *testing.T, weekly model.WeeklySlots) {
	t.Helper()
	_, err := f.svc.SetWeeklyAvailability(context.Background(), "teacher-1", weekly, "UTC", 0, nil)
	require.NoError(t, err)
}

func TestComputeAvailabilityWeeklyPattern(t *testing.T) {
	f := newAvailabilityFixture()
	f.seedWeekly(t, model.WeeklySlots{
		time.Monday: {slot("10:00", "11:00"), slot("14:00", "15:30")},
	})

	// Monday through Tuesday of the following week.
	rangeStart := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	rangeEnd := rangeStart.AddDate(0, 0, 2)

	slots, err := f.svc.ComputeAvailability(context.Background(), "teacher-1", rangeStart, rangeEnd)
	require.NoError(t, err)

	require.Len(t, slots, 2)
	assert.Equal(t, time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC), slots[0].StartTime)
	assert.Equal(t, time.Date(2025, 3, 17, 11, 0, 0, 0, time.UTC), slots[0].EndTime)
	assert.True(t, slots[0].IsAvailable)
	assert.Equal(t, time.Date(2025, 3, 17, 14, 0, 0, 0, time.UTC), slots[1].StartTime)
	assert.True(t, slots[1].IsAvailable)
}

func TestComputeAvailabilityBookingConflict(t *testing.T) {
	f := newAvailabilityFixture()
	f.seedWeekly(t, model.WeeklySlots{
		time.Monday: {slot("10:00", "11:00"), slot("14:00", "15:00")},
	})

	busyStart := time.Date(2025, 3, 17, 10, 30, 0, 0, time.UTC)
	busyEnd := busyStart.Add(time.Hour)
	require.NoError(t, f.bookings.Create(context.Background(), &model.Booking{
		ID:           "bk-1",
		TeacherID:    "teacher-1",
		StudentID:    "student-1",
		Status:       model.BookingStatusConfirmed,
		SessionStart: &busyStart,
		SessionEnd:   &busyEnd,
	}))

	rangeStart := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	slots, err := f.svc.ComputeAvailability(context.Background(), "teacher-1", rangeStart, rangeStart.AddDate(0, 0, 1))
	require.NoError(t, err)

	require.Len(t, slots, 2)
	assert.False(t, slots[0].IsAvailable)
	assert.Equal(t, "Existing booking", slots[0].Reason)
	assert.True(t, slots[1].IsAvailable)
}

func TestComputeAvailabilityBatchBookingConflict(t *testing.T) {
	f := newAvailabilityFixture()
	f.seedWeekly(t, model.WeeklySlots{
		time.Monday: {slot("10:00", "11:00"), slot("14:00", "15:00")},
	})

	// A confirmed batch booking has no top-level window; its times live in
	// the per-session entries and must still consume the matching slots.
	require.NoError(t, f.bookings.Create(context.Background(), &model.Booking{
		ID:        "bk-batch",
		TeacherID: "teacher-1",
		StudentID: "student-1",
		Status:    model.BookingStatusConfirmed,
		Sessions: []model.SessionTime{
			{
				StartTime: time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC),
				EndTime:   time.Date(2025, 3, 17, 11, 0, 0, 0, time.UTC),
			},
			{
				StartTime: time.Date(2025, 3, 24, 10, 0, 0, 0, time.UTC),
				EndTime:   time.Date(2025, 3, 24, 11, 0, 0, 0, time.UTC),
			},
		},
	}))

	rangeStart := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	slots, err := f.svc.ComputeAvailability(context.Background(), "teacher-1", rangeStart, rangeStart.AddDate(0, 0, 1))
	require.NoError(t, err)

	require.Len(t, slots, 2)
	assert.False(t, slots[0].IsAvailable)
	assert.Equal(t, "Existing booking", slots[0].Reason)
	assert.True(t, slots[1].IsAvailable)
}

func TestComputeAvailabilitySessionConflict(t *testing.T) {
	f := newAvailabilityFixture()
	f.seedWeekly(t, model.WeeklySlots{
		time.Monday: {slot("10:00", "11:00")},
	})

	require.NoError(t, f.sessions.Create(context.Background(), &model.ClassSession{
		ID:             "sess-1",
		TeacherID:      "teacher-1",
		Status:         model.SessionStatusScheduled,
		ScheduledStart: time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC),
		ScheduledEnd:   time.Date(2025, 3, 17, 11, 0, 0, 0, time.UTC),
	}))

	rangeStart := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	slots, err := f.svc.ComputeAvailability(context.Background(), "teacher-1", rangeStart, rangeStart.AddDate(0, 0, 1))
	require.NoError(t, err)

	require.Len(t, slots, 1)
	assert.False(t, slots[0].IsAvailable)
	assert.Equal(t, "Session scheduled", slots[0].Reason)
}

func TestComputeAvailabilityCancelledSessionIgnored(t *testing.T) {
	f := newAvailabilityFixture()
	f.seedWeekly(t, model.WeeklySlots{
		time.Monday: {slot("10:00", "11:00")},
	})

	require.NoError(t, f.sessions.Create(context.Background(), &model.ClassSession{
		ID:             "sess-1",
		TeacherID:      "teacher-1",
		Status:         model.SessionStatusCancelled,
		ScheduledStart: time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC),
		ScheduledEnd:   time.Date(2025, 3, 17, 11, 0, 0, 0, time.UTC),
	}))

	rangeStart := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	slots, err := f.svc.ComputeAvailability(context.Background(), "teacher-1", rangeStart, rangeStart.AddDate(0, 0, 1))
	require.NoError(t, err)

	require.Len(t, slots, 1)
	assert.True(t, slots[0].IsAvailable)
}

func TestComputeAvailabilityDateOverride(t *testing.T) {
	f := newAvailabilityFixture()
	f.seedWeekly(t, model.WeeklySlots{
		time.Monday: {slot("10:00", "11:00")},
	})

	overrideDate := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	err := f.svc.SaveDateSpecificBatch(context.Background(), "teacher-1", []DateEntry{
		{Date: overrideDate, TimeSlots: []model.TimeSlot{slot("16:00", "17:00")}},
	}, "UTC", 0)
	require.NoError(t, err)

	slots, err := f.svc.ComputeAvailability(context.Background(), "teacher-1", overrideDate, overrideDate.AddDate(0, 0, 1))
	require.NoError(t, err)

	// The override replaces the weekly pattern for that date entirely.
	require.Len(t, slots, 1)
	assert.Equal(t, time.Date(2025, 3, 17, 16, 0, 0, 0, time.UTC), slots[0].StartTime)
	assert.True(t, slots[0].IsAvailable)
}

func TestComputeAvailabilityBlockedSlot(t *testing.T) {
	f := newAvailabilityFixture()
	blocked := false
	f.seedWeekly(t, model.WeeklySlots{
		time.Monday: {{StartTime: "10:00", EndTime: "11:00", IsAvailable: &blocked}},
	})

	rangeStart := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	slots, err := f.svc.ComputeAvailability(context.Background(), "teacher-1", rangeStart, rangeStart.AddDate(0, 0, 1))
	require.NoError(t, err)

	require.Len(t, slots, 1)
	assert.False(t, slots[0].IsAvailable)
	assert.Equal(t, "Blocked by teacher", slots[0].Reason)
}

func TestComputeAvailabilityNoConfiguration(t *testing.T) {
	f := newAvailabilityFixture()

	busyStart := time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC)
	busyEnd := busyStart.Add(time.Hour)
	require.NoError(t, f.bookings.Create(context.Background(), &model.Booking{
		ID:           "bk-1",
		TeacherID:    "teacher-1",
		StudentID:    "student-1",
		Status:       model.BookingStatusPending,
		SessionStart: &busyStart,
		SessionEnd:   &busyEnd,
	}))

	rangeStart := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	slots, err := f.svc.ComputeAvailability(context.Background(), "teacher-1", rangeStart, rangeStart.AddDate(0, 0, 1))
	require.NoError(t, err)

	// No schedule configured degrades to the busy intervals only.
	require.Len(t, slots, 1)
	assert.False(t, slots[0].IsAvailable)
	assert.Equal(t, busyStart, slots[0].StartTime)
}

func TestComputeAvailabilityInvalidRange(t *testing.T) {
	f := newAvailabilityFixture()

	start := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.ComputeAvailability(context.Background(), "teacher-1", start, start.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestSetWeeklyAvailabilityRejectsOverlap(t *testing.T) {
	f := newAvailabilityFixture()

	_, err := f.svc.SetWeeklyAvailability(context.Background(), "teacher-1", model.WeeklySlots{
		time.Monday: {slot("10:00", "12:00"), slot("11:00", "13:00")},
	}, "UTC", 0, nil)
	assert.ErrorIs(t, err, ErrSlotOverlap)
}

func TestSetWeeklyAvailabilityDefaults(t *testing.T) {
	f := newAvailabilityFixture()

	availability, err := f.svc.SetWeeklyAvailability(context.Background(), "teacher-1", model.WeeklySlots{
		time.Monday: {slot("10:00", "11:00")},
	}, "", 0, nil)
	require.NoError(t, err)

	assert.Equal(t, "UTC", availability.Timezone)
	assert.Equal(t, defaultBufferMinutes, availability.BufferTimeMinutes)
	require.Len(t, availability.Weekly[time.Monday], 1)
	assert.True(t, availability.Weekly[time.Monday][0].Available())
}

func TestAddTimeSlot(t *testing.T) {
	f := newAvailabilityFixture()
	f.seedWeekly(t, model.WeeklySlots{
		time.Monday: {slot("10:00", "11:00")},
	})

	// Back-to-back with the existing slot is fine.
	availability, err := f.svc.AddTimeSlot(context.Background(), "teacher-1", time.Monday, slot("11:00", "12:00"))
	require.NoError(t, err)
	assert.Len(t, availability.Weekly[time.Monday], 2)

	_, err = f.svc.AddTimeSlot(context.Background(), "teacher-1", time.Monday, slot("10:30", "11:30"))
	assert.ErrorIs(t, err, ErrSlotOverlap)
}

func TestAddTimeSlotNoSchedule(t *testing.T) {
	f := newAvailabilityFixture()

	_, err := f.svc.AddTimeSlot(context.Background(), "teacher-1", time.Monday, slot("10:00", "11:00"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveTimeSlot(t *testing.T) {
	f := newAvailabilityFixture()
	f.seedWeekly(t, model.WeeklySlots{
		time.Monday: {slot("10:00", "11:00"), slot("14:00", "15:00")},
	})

	availability, err := f.svc.RemoveTimeSlot(context.Background(), "teacher-1", time.Monday, slot("10:00", "11:00"))
	require.NoError(t, err)

	require.Len(t, availability.Weekly[time.Monday], 1)
	assert.Equal(t, "14:00", availability.Weekly[time.Monday][0].StartTime)
}

func TestGetWeeklyAvailabilityDefault(t *testing.T) {
	f := newAvailabilityFixture()

	availability, err := f.svc.GetWeeklyAvailability(context.Background(), "teacher-1")
	require.NoError(t, err)

	assert.Equal(t, "teacher-1", availability.TeacherID)
	assert.Equal(t, "UTC", availability.Timezone)
	assert.Empty(t, availability.Weekly)
}

func TestDateSpecificRoundTrip(t *testing.T) {
	f := newAvailabilityFixture()

	date := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	err := f.svc.SaveDateSpecificBatch(context.Background(), "teacher-1", []DateEntry{
		{Date: date, TimeSlots: []model.TimeSlot{slot("09:00", "10:00")}},
	}, "UTC", 0)
	require.NoError(t, err)

	byDate, err := f.svc.GetDateSpecificAvailability(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.Contains(t, byDate, "2025-03-20")
	assert.Len(t, byDate["2025-03-20"], 1)

	require.NoError(t, f.svc.DeleteDateSpecific(context.Background(), "teacher-1", date))

	byDate, err = f.svc.GetDateSpecificAvailability(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.NotContains(t, byDate, "2025-03-20")
}

func TestSaveDateSpecificBatchKeepsEntryID(t *testing.T) {
	f := newAvailabilityFixture()

	date := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	err := f.svc.SaveDateSpecificBatch(context.Background(), "teacher-1", []DateEntry{
		{Date: date, TimeSlots: []model.TimeSlot{slot("09:00", "10:00")}},
	}, "UTC", 0)
	require.NoError(t, err)

	first, err := f.store.GetDate(context.Background(), "teacher-1", date)
	require.NoError(t, err)
	require.NotNil(t, first)

	err = f.svc.SaveDateSpecificBatch(context.Background(), "teacher-1", []DateEntry{
		{Date: date, TimeSlots: []model.TimeSlot{slot("14:00", "15:00")}},
	}, "UTC", 0)
	require.NoError(t, err)

	second, err := f.store.GetDate(context.Background(), "teacher-1", date)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []model.TimeSlot{slot("14:00", "15:00")}, second.TimeSlots)
}

func TestSaveDateSpecificBatchRejectsOverlap(t *testing.T) {
	f := newAvailabilityFixture()

	err := f.svc.SaveDateSpecificBatch(context.Background(), "teacher-1", []DateEntry{
		{Date: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), TimeSlots: []model.TimeSlot{
			slot("09:00", "11:00"), slot("10:00", "12:00"),
		}},
	}, "UTC", 0)
	assert.ErrorIs(t, err, ErrSlotOverlap)
}
