package event

import (
	"context"
	"sync"
)

// RecordingSink captures events in memory. Used by tests to assert on
// published transitions.
type RecordingSink struct {
	mu     sync.Mutex
	events []BookingEvent
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) Publish(_ context.Context, e BookingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a snapshot of everything published so far.
func (s *RecordingSink) Events() []BookingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BookingEvent, len(s.events))
	copy(out, s.events)
	return out
}
