package store

import (
	"context"
	"fmt"
	"sync"

	"idmcore/internal/forms"
	"idmcore/pkg/platform/sentinel"
)

// InMemoryStore keeps enquiry form definitions in memory for tests/dev.
type InMemoryStore struct {
	mu    sync.RWMutex
	forms map[string]*forms.EnquiryForm
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{forms: make(map[string]*forms.EnquiryForm)}
}

// Save adds or replaces a form definition.
func (s *InMemoryStore) Save(_ context.Context, form *forms.EnquiryForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *form
	s.forms[form.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, formID string) (*forms.EnquiryForm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	form, ok := s.forms[formID]
	if !ok {
		return nil, fmt.Errorf("form %s: %w", formID, sentinel.ErrNotFound)
	}
	cp := *form
	return &cp, nil
}
