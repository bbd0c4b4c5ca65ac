package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tcon/booking-service/internal/event"
	"github.com/tcon/booking-service/internal/lock"
	"github.com/tcon/booking-service/internal/model"
)

// In-memory stores mirroring the repository layer's contract: lookups by
// key, absent records as (nil, nil).

type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: make(map[string]*model.Booking)}
}

func (f *fakeBookingStore) Create(_ context.Context, booking *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = booking.CreatedAt
	}
	f.bookings[booking.ID] = booking
	return nil
}

func (f *fakeBookingStore) GetByID(_ context.Context, id string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookings[id], nil
}

func (f *fakeBookingStore) Update(_ context.Context, booking *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking.UpdatedAt = time.Now()
	f.bookings[booking.ID] = booking
	return nil
}

func (f *fakeBookingStore) GetByStudentID(_ context.Context, studentID string) ([]*model.Booking, error) {
	return f.filter(func(b *model.Booking) bool { return b.StudentID == studentID }), nil
}

func (f *fakeBookingStore) GetByTeacherID(_ context.Context, teacherID string) ([]*model.Booking, error) {
	return f.filter(func(b *model.Booking) bool { return b.TeacherID == teacherID }), nil
}

func (f *fakeBookingStore) GetBySessionID(_ context.Context, sessionID string) ([]*model.Booking, error) {
	return f.filter(func(b *model.Booking) bool { return b.SessionID == sessionID }), nil
}

func (f *fakeBookingStore) GetByTeacherIDAndStatus(_ context.Context, teacherID string, status model.BookingStatus) ([]*model.Booking, error) {
	return f.filter(func(b *model.Booking) bool {
		return b.TeacherID == teacherID && b.Status == status
	}), nil
}

func (f *fakeBookingStore) GetByStudentIDInRange(_ context.Context, studentID string, from, to time.Time) ([]*model.Booking, error) {
	return f.filter(func(b *model.Booking) bool {
		return b.StudentID == studentID && b.SessionStart != nil &&
			!b.SessionStart.Before(from) && b.SessionStart.Before(to)
	}), nil
}

func (f *fakeBookingStore) ExistsBySessionAndStudent(_ context.Context, sessionID, studentID string) (bool, error) {
	active := f.filter(func(b *model.Booking) bool {
		switch b.Status {
		case model.BookingStatusCancelled, model.BookingStatusRejected, model.BookingStatusExpired:
			return false
		}
		return b.SessionID == sessionID && b.StudentID == studentID
	})
	return len(active) > 0, nil
}

func (f *fakeBookingStore) CountBySessionAndStatus(_ context.Context, sessionID string, status model.BookingStatus) (int64, error) {
	matching := f.filter(func(b *model.Booking) bool {
		return b.SessionID == sessionID && b.Status == status
	})
	return int64(len(matching)), nil
}

func (f *fakeBookingStore) GetActiveByTeacherInRange(_ context.Context, teacherID string, from, to time.Time) ([]*model.Booking, error) {
	return f.filter(func(b *model.Booking) bool {
		if b.TeacherID != teacherID {
			return false
		}
		if b.Status != model.BookingStatusPending && b.Status != model.BookingStatusConfirmed {
			return false
		}
		if len(b.Sessions) > 0 {
			return true
		}
		return b.SessionStart != nil && b.SessionEnd != nil &&
			b.SessionStart.Before(to) && b.SessionEnd.After(from)
	}), nil
}

func (f *fakeBookingStore) GetStalePendingPayment(_ context.Context, olderThan time.Time) ([]*model.Booking, error) {
	return f.filter(func(b *model.Booking) bool {
		return b.Status == model.BookingStatusPendingPayment && b.UpdatedAt.Before(olderThan)
	}), nil
}

func (f *fakeBookingStore) filter(keep func(*model.Booking) bool) []*model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Booking
	for _, b := range f.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.ClassSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*model.ClassSession)}
}

func (f *fakeSessionStore) Create(_ context.Context, session *model.ClassSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id string) (*model.ClassSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id], nil
}

func (f *fakeSessionStore) GetByTeacherInRange(_ context.Context, teacherID string, from, to time.Time) ([]*model.ClassSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ClassSession
	for _, s := range f.sessions {
		if s.TeacherID == teacherID && s.ScheduledStart.Before(to) && s.ScheduledEnd.After(from) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) SetBookingID(_ context.Context, sessionID, bookingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.BookingID = bookingID
	}
	return nil
}

func (f *fakeSessionStore) UpdateStatus(_ context.Context, sessionID string, status model.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.Status = status
	}
	return nil
}

type fakeAvailabilityStore struct {
	mu     sync.Mutex
	weekly map[string]*model.WeeklyAvailability
	dates  map[string]map[string]*model.DateSpecificAvailability
}

func newFakeAvailabilityStore() *fakeAvailabilityStore {
	return &fakeAvailabilityStore{
		weekly: make(map[string]*model.WeeklyAvailability),
		dates:  make(map[string]map[string]*model.DateSpecificAvailability),
	}
}

func (f *fakeAvailabilityStore) GetWeekly(_ context.Context, teacherID string) (*model.WeeklyAvailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.weekly[teacherID], nil
}

func (f *fakeAvailabilityStore) SaveWeekly(_ context.Context, availability *model.WeeklyAvailability) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weekly[availability.TeacherID] = availability
	return nil
}

func (f *fakeAvailabilityStore) DeleteWeekly(_ context.Context, teacherID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.weekly, teacherID)
	return nil
}

func (f *fakeAvailabilityStore) UpsertDate(_ context.Context, availability *model.DateSpecificAvailability) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	byDate, ok := f.dates[availability.TeacherID]
	if !ok {
		byDate = make(map[string]*model.DateSpecificAvailability)
		f.dates[availability.TeacherID] = byDate
	}
	byDate[availability.Date.Format("2006-01-02")] = availability
	return nil
}

func (f *fakeAvailabilityStore) GetDate(_ context.Context, teacherID string, date time.Time) (*model.DateSpecificAvailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dates[teacherID][date.Format("2006-01-02")], nil
}

func (f *fakeAvailabilityStore) GetDatesInRange(_ context.Context, teacherID string, from, to time.Time) ([]*model.DateSpecificAvailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.DateSpecificAvailability
	for _, e := range f.dates[teacherID] {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAvailabilityStore) DeleteDate(_ context.Context, teacherID string, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.dates[teacherID], date.Format("2006-01-02"))
	return nil
}

type bookingFixture struct {
	svc      *BookingService
	bookings *fakeBookingStore
	sessions *fakeSessionStore
	guard    *lock.MemoryGuard
	sink     *event.RecordingSink
	now      time.Time
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		bookings: newFakeBookingStore(),
		sessions: newFakeSessionStore(),
		guard:    lock.NewMemoryGuard(),
		sink:     event.NewRecordingSink(),
		now:      time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewBookingService(f.bookings, f.sessions, f.guard, f.sink, zap.NewNop())
	f.svc.now = func() time.Time { return f.now }
	return f
}
