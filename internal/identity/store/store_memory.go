package store

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"idmcore/internal/identity/models"
	id "idmcore/pkg/domain"
	"idmcore/pkg/platform/sentinel"
)

// Error Contract:
// - Return sentinel.ErrNotFound when the entity or identity does not exist
// - Return sentinel.ErrConflict when an identity already belongs to another entity
// - Return sentinel.ErrInvalidState when an attribute targets a group the entity is not in
//
// InMemoryStore keeps entities in memory for tests/dev.
type InMemoryStore struct {
	mu       sync.RWMutex
	entities map[id.EntityID]*models.Entity
	// identity key -> owning entity
	identities map[string]id.EntityID
}

// NewInMemory constructs an empty in-memory identity store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		entities:   make(map[id.EntityID]*models.Entity),
		identities: make(map[string]id.EntityID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, entity *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[entity.ID]; ok {
		return fmt.Errorf("entity %s exists: %w", entity.ID, sentinel.ErrConflict)
	}
	for _, ident := range entity.Identities {
		if owner, ok := s.identities[ident.Key()]; ok && owner != entity.ID {
			return fmt.Errorf("identity %s/%s taken: %w", ident.TypeID, ident.Value, sentinel.ErrConflict)
		}
	}
	stored := entity.Clone()
	if stored.Status == "" {
		stored.Status = models.EntityStatusValid
	}
	s.entities[entity.ID] = stored
	for _, ident := range stored.Identities {
		s.identities[ident.Key()] = entity.ID
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, entityID id.EntityID) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return nil, fmt.Errorf("entity not found: %w", sentinel.ErrNotFound)
	}
	return entity.Clone(), nil
}

// ResolveIdentity finds the entity owning value under the first matching identity type.
func (s *InMemoryStore) ResolveIdentity(_ context.Context, typeIDs []string, value string) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, typeID := range typeIDs {
		key := models.IdentityParam{TypeID: typeID, Value: value}.Key()
		if owner, ok := s.identities[key]; ok {
			return s.entities[owner].Clone(), nil
		}
	}
	return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) InsertIdentity(_ context.Context, entityID id.EntityID, ident models.IdentityParam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return fmt.Errorf("entity not found: %w", sentinel.ErrNotFound)
	}
	if owner, ok := s.identities[ident.Key()]; ok {
		if owner == entityID {
			return nil
		}
		return fmt.Errorf("identity %s/%s taken: %w", ident.TypeID, ident.Value, sentinel.ErrConflict)
	}
	entity.Identities = append(entity.Identities, ident)
	s.identities[ident.Key()] = entityID
	return nil
}

func (s *InMemoryStore) AddToGroup(_ context.Context, entityID id.EntityID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return fmt.Errorf("entity not found: %w", sentinel.ErrNotFound)
	}
	for _, group := range models.GroupChain(path) {
		if !slices.Contains(entity.Groups, group) {
			entity.Groups = append(entity.Groups, group)
		}
	}
	return nil
}

// AddAttributes upserts attributes by (group, name). Every target group must
// already be a membership of the entity.
func (s *InMemoryStore) AddAttributes(_ context.Context, entityID id.EntityID, attrs []models.Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return fmt.Errorf("entity not found: %w", sentinel.ErrNotFound)
	}
	for _, attr := range attrs {
		if !entity.InGroup(attr.GroupPath) {
			return fmt.Errorf("entity not in group %s: %w", attr.GroupPath, sentinel.ErrInvalidState)
		}
	}
	for _, attr := range attrs {
		idx := slices.IndexFunc(entity.Attributes, func(a models.Attribute) bool {
			return a.Name == attr.Name && a.GroupPath == attr.GroupPath
		})
		if idx >= 0 {
			entity.Attributes[idx] = attr.Clone()
			continue
		}
		entity.Attributes = append(entity.Attributes, attr.Clone())
	}
	return nil
}

func (s *InMemoryStore) RemoveAttribute(_ context.Context, entityID id.EntityID, groupPath, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return fmt.Errorf("entity not found: %w", sentinel.ErrNotFound)
	}
	before := len(entity.Attributes)
	entity.Attributes = slices.DeleteFunc(entity.Attributes, func(a models.Attribute) bool {
		return a.Name == name && a.GroupPath == groupPath
	})
	if len(entity.Attributes) == before {
		return fmt.Errorf("attribute not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *InMemoryStore) SetAttributeClasses(_ context.Context, entityID id.EntityID, groupPath string, classes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return fmt.Errorf("entity not found: %w", sentinel.ErrNotFound)
	}
	if !entity.InGroup(groupPath) {
		return fmt.Errorf("entity not in group %s: %w", groupPath, sentinel.ErrInvalidState)
	}
	if entity.AttributeClasses == nil {
		entity.AttributeClasses = make(map[string][]string)
	}
	entity.AttributeClasses[groupPath] = slices.Clone(classes)
	return nil
}

func (s *InMemoryStore) SetCredential(_ context.Context, entityID id.EntityID, cred models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return fmt.Errorf("entity not found: %w", sentinel.ErrNotFound)
	}
	if entity.Credentials == nil {
		entity.Credentials = make(map[string]models.Credential)
	}
	entity.Credentials[cred.CredentialID] = cred
	return nil
}

func (s *InMemoryStore) SetStatus(_ context.Context, entityID id.EntityID, status models.EntityStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return fmt.Errorf("entity not found: %w", sentinel.ErrNotFound)
	}
	entity.Status = status
	return nil
}

func (s *InMemoryStore) Remove(_ context.Context, entityID id.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return fmt.Errorf("entity not found: %w", sentinel.ErrNotFound)
	}
	for _, ident := range entity.Identities {
		delete(s.identities, ident.Key())
	}
	delete(s.entities, entityID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Entity, 0, len(s.entities))
	for _, entity := range s.entities {
		out = append(out, entity.Clone())
	}
	slices.SortFunc(out, func(a, b *models.Entity) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}
