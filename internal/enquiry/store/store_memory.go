package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"idmcore/internal/enquiry/models"
	id "idmcore/pkg/domain"
	"idmcore/pkg/platform/sentinel"
)

// InMemoryStore keeps enquiry responses in memory for tests/dev.
type InMemoryStore struct {
	mu        sync.RWMutex
	responses map[id.ResponseID]*models.Response
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{responses: make(map[id.ResponseID]*models.Response)}
}

func (s *InMemoryStore) Create(_ context.Context, resp *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.responses[resp.ID]; ok {
		return fmt.Errorf("response %s exists: %w", resp.ID, sentinel.ErrConflict)
	}
	s.responses[resp.ID] = resp.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, responseID id.ResponseID) (*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp, ok := s.responses[responseID]
	if !ok {
		return nil, fmt.Errorf("response %s: %w", responseID, sentinel.ErrNotFound)
	}
	return resp.Clone(), nil
}

// FindForUpdate is FindByID; callers serialize through the transaction lock.
func (s *InMemoryStore) FindForUpdate(ctx context.Context, responseID id.ResponseID) (*models.Response, error) {
	return s.FindByID(ctx, responseID)
}

func (s *InMemoryStore) Update(_ context.Context, resp *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.responses[resp.ID]; !ok {
		return fmt.Errorf("response %s: %w", resp.ID, sentinel.ErrNotFound)
	}
	s.responses[resp.ID] = resp.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, responseID id.ResponseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.responses[responseID]; !ok {
		return fmt.Errorf("response %s: %w", responseID, sentinel.ErrNotFound)
	}
	delete(s.responses, responseID)
	return nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entityID id.EntityID) ([]*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Response
	for _, resp := range s.responses {
		if resp.EntityID == entityID {
			out = append(out, resp.Clone())
		}
	}
	return out, nil
}

// FindPending returns the pending responses of entityID to formID, oldest first.
func (s *InMemoryStore) FindPending(_ context.Context, entityID id.EntityID, formID string) ([]*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Response
	for _, resp := range s.responses {
		if resp.EntityID == entityID && resp.FormID == formID && resp.IsPending() {
			out = append(out, resp.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Response) int {
		return a.SubmittedAt.Compare(b.SubmittedAt)
	})
	return out, nil
}
