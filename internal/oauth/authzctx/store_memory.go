package authzctx

import (
	"context"
	"fmt"
	"sync"
	"time"

	id "idmcore/pkg/domain"
	"idmcore/pkg/platform/sentinel"
	"idmcore/pkg/requestcontext"
)

// InMemoryStore keeps contexts for a single instance. Expired entries stay
// until DeleteExpired runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	contexts map[id.AuthzContextID]*OAuthAuthzContext
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{contexts: make(map[id.AuthzContextID]*OAuthAuthzContext)}
}

func (s *InMemoryStore) Save(_ context.Context, c *OAuthAuthzContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[c.ID] = c.clone()
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, contextID id.AuthzContextID) (*OAuthAuthzContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[contextID]
	if !ok {
		return nil, fmt.Errorf("authz context not found: %w", sentinel.ErrNotFound)
	}
	if c.IsExpired(requestcontext.Now(ctx)) {
		return nil, fmt.Errorf("authz context %s: %w", contextID, sentinel.ErrExpired)
	}
	return c.clone(), nil
}

func (s *InMemoryStore) Delete(_ context.Context, contextID id.AuthzContextID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, contextID)
	return nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, c := range s.contexts {
		if c.IsExpired(now) {
			delete(s.contexts, key)
			deleted++
		}
	}
	return deleted, nil
}
