package accesslog

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps events in a slice ordered oldest first. Used in tests
// and as the demo fallback.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    []Event
	maxEvents int
}

func NewInMemoryStore(maxEvents int) *InMemoryStore {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &InMemoryStore{maxEvents: maxEvents}
}

func (s *InMemoryStore) Append(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if excess := len(s.events) - s.maxEvents; excess > 0 {
		s.events = append([]Event(nil), s.events[excess:]...)
	}
	return nil
}

// Query returns matching events newest first.
func (s *InMemoryStore) Query(ctx context.Context, f Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		if f.matches(s.events[i]) {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *InMemoryStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(s.events) - len(kept)
	s.events = kept
	return removed, nil
}
