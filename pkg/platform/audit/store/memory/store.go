package memory

import (
	"context"
	"maps"
	"sync"

	audit "idmcore/pkg/platform/audit"
)

// InMemoryStore keeps events in arrival order. For tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	event.Details = maps.Clone(event.Details)
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) List(_ context.Context, q audit.Query) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, e := range s.events {
		if q.Matches(e) {
			out = append(out, e)
		}
	}
	if limit := q.EffectiveLimit(); len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Len reports how many events are stored.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
