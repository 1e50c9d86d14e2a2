package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"idmcore/internal/credreset/models"
	id "idmcore/pkg/domain"
	"idmcore/pkg/platform/sentinel"
	"idmcore/pkg/requestcontext"
)

type memorySession struct {
	session   *models.Session
	expiresAt time.Time
}

// InMemorySessionStore is for development and tests.
type InMemorySessionStore struct {
	mu       sync.Mutex
	sessions map[id.ResetSessionID]memorySession
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[id.ResetSessionID]memorySession)}
}

func (s *InMemorySessionStore) Create(ctx context.Context, session *models.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[session.ID]; ok && !s.expired(ctx, existing) {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrConflict)
	}
	s.sessions[session.ID] = memorySession{
		session:   session.Clone(),
		expiresAt: requestcontext.Now(ctx).Add(ttl),
	}
	return nil
}

func (s *InMemorySessionStore) Get(ctx context.Context, sessionID id.ResetSessionID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.live(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return entry.session.Clone(), nil
}

func (s *InMemorySessionStore) Advance(ctx context.Context, sessionID id.ResetSessionID, expected models.Step, fn func(*models.Session) error) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.live(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if entry.session.Step != expected {
		return nil, fmt.Errorf("session at %s, expected %s: %w", entry.session.Step, expected, sentinel.ErrStaleStep)
	}
	next := entry.session.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	entry.session = next
	s.sessions[sessionID] = entry
	return next.Clone(), nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.ResetSessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// live returns the unexpired entry, dropping it when it has expired.
func (s *InMemorySessionStore) live(ctx context.Context, sessionID id.ResetSessionID) (memorySession, error) {
	entry, ok := s.sessions[sessionID]
	if !ok {
		return memorySession{}, sentinel.ErrNotFound
	}
	if s.expired(ctx, entry) {
		delete(s.sessions, sessionID)
		return memorySession{}, sentinel.ErrNotFound
	}
	return entry, nil
}

func (s *InMemorySessionStore) expired(ctx context.Context, entry memorySession) bool {
	return !requestcontext.Now(ctx).Before(entry.expiresAt)
}

type attemptRecord struct {
	count       int
	windowStart time.Time
	window      time.Duration
}

// InMemoryAttemptStore counts failures per key in a fixed window.
type InMemoryAttemptStore struct {
	mu      sync.RWMutex
	records map[string]*attemptRecord
}

func NewInMemoryAttemptStore() *InMemoryAttemptStore {
	return &InMemoryAttemptStore{records: make(map[string]*attemptRecord)}
}

func (s *InMemoryAttemptStore) Count(ctx context.Context, key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[key]
	if !ok || record.closed(requestcontext.Now(ctx)) {
		return 0, nil
	}
	return record.count, nil
}

func (s *InMemoryAttemptStore) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	record, ok := s.records[key]
	if !ok || record.closed(now) {
		record = &attemptRecord{windowStart: now, window: window}
		s.records[key] = record
	}
	record.count++
	return record.count, nil
}

func (s *InMemoryAttemptStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	return nil
}

func (r *attemptRecord) closed(now time.Time) bool {
	return !now.Before(r.windowStart.Add(r.window))
}
