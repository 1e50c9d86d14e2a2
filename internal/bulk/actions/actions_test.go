package actions

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idmcore/internal/identity/models"
	"idmcore/internal/identity/store"
	"idmcore/internal/translation"
	id "idmcore/pkg/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newEntity(t *testing.T, s *store.InMemoryStore) *models.Entity {
	t.Helper()
	entity := &models.Entity{
		ID:         id.EntityID(uuid.New()),
		Status:     models.EntityStatusValid,
		Identities: []models.IdentityParam{{TypeID: models.IdentityTypeUsername, Value: "bob"}},
		Attributes: []models.Attribute{{Name: "nickname", GroupPath: models.RootGroup, Values: []string{"bobby"}}},
	}
	require.NoError(t, s.Create(context.Background(), entity))
	return entity
}

func TestResolve(t *testing.T) {
	registry := NewRegistry(store.NewInMemory())

	tests := []struct {
		name  string
		inv   translation.ActionInvocation
		blind bool
	}{
		{name: "remove entity", inv: translation.ActionInvocation{Name: ActionRemoveEntity}},
		{name: "change status", inv: translation.ActionInvocation{Name: ActionChangeStatus, Parameters: []string{"disabled"}}},
		{name: "remove attribute", inv: translation.ActionInvocation{Name: ActionRemoveAttribute, Parameters: []string{"nickname"}}},
		{name: "unknown action", inv: translation.ActionInvocation{Name: "sendFlowers"}, blind: true},
		{name: "bad status", inv: translation.ActionInvocation{Name: ActionChangeStatus, Parameters: []string{"asleep"}}, blind: true},
		{name: "missing attribute name", inv: translation.ActionInvocation{Name: ActionRemoveAttribute}, blind: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action := registry.Resolve(tt.inv, discard)
			_, isBlind := action.(*BlindStopper)
			assert.Equal(t, tt.blind, isBlind)
			assert.Equal(t, tt.inv.Name, action.Name())
		})
	}
}

func TestActions(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()
	registry := NewRegistry(s)

	t.Run("change status", func(t *testing.T) {
		entity := newEntity(t, s)
		action := registry.Resolve(translation.ActionInvocation{Name: ActionChangeStatus, Parameters: []string{"disabled"}}, discard)
		require.NoError(t, action.Invoke(ctx, entity))
		got, err := s.FindByID(ctx, entity.ID)
		require.NoError(t, err)
		assert.Equal(t, models.EntityStatusDisabled, got.Status)
		require.NoError(t, s.Remove(ctx, entity.ID))
	})

	t.Run("remove attribute twice", func(t *testing.T) {
		entity := newEntity(t, s)
		action := registry.Resolve(translation.ActionInvocation{Name: ActionRemoveAttribute, Parameters: []string{"nickname", "/"}}, discard)
		require.NoError(t, action.Invoke(ctx, entity))
		require.NoError(t, action.Invoke(ctx, entity))
		got, err := s.FindByID(ctx, entity.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Attributes)
		require.NoError(t, s.Remove(ctx, entity.ID))
	})

	t.Run("remove entity", func(t *testing.T) {
		entity := newEntity(t, s)
		action := registry.Resolve(translation.ActionInvocation{Name: ActionRemoveEntity}, discard)
		require.NoError(t, action.Invoke(ctx, entity))
		_, err := s.ResolveIdentity(ctx, []string{models.IdentityTypeUsername}, "bob")
		assert.Error(t, err)
		require.NoError(t, action.Invoke(ctx, entity))
	})

	t.Run("blind stopper leaves the entity alone", func(t *testing.T) {
		entity := newEntity(t, s)
		action := registry.Resolve(translation.ActionInvocation{Name: "sendFlowers"}, discard)
		require.NoError(t, action.Invoke(ctx, entity))
		_, err := s.FindByID(ctx, entity.ID)
		require.NoError(t, err)
	})
}
