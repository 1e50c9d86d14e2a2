// Package actions implements the entity actions bulk rules can invoke.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"idmcore/internal/identity/models"
	"idmcore/internal/translation"
	id "idmcore/pkg/domain"
	"idmcore/pkg/platform/sentinel"
)

const (
	ActionRemoveEntity    = "removeEntity"
	ActionChangeStatus    = "changeStatus"
	ActionRemoveAttribute = "removeAttribute"
)

// EntityStore is the identity store surface bulk actions mutate.
type EntityStore interface {
	Remove(ctx context.Context, entityID id.EntityID) error
	SetStatus(ctx context.Context, entityID id.EntityID, status models.EntityStatus) error
	RemoveAttribute(ctx context.Context, entityID id.EntityID, groupPath, name string) error
}

// EntityAction is applied to each entity a rule matches.
type EntityAction interface {
	Name() string
	Invoke(ctx context.Context, entity *models.Entity) error
}

type Factory func(store EntityStore, params []string) (EntityAction, error)

type Registry struct {
	mu        sync.RWMutex
	store     EntityStore
	factories map[string]Factory
}

func NewRegistry(store EntityStore) *Registry {
	r := &Registry{store: store, factories: make(map[string]Factory)}
	r.Register(ActionRemoveEntity, newRemoveEntity)
	r.Register(ActionChangeStatus, newChangeStatus)
	r.Register(ActionRemoveAttribute, newRemoveAttribute)
	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Resolve never fails: an unknown or misconfigured action becomes a
// BlindStopper that logs and does nothing.
func (r *Registry) Resolve(inv translation.ActionInvocation, logger *slog.Logger) EntityAction {
	r.mu.RLock()
	f, ok := r.factories[inv.Name]
	r.mu.RUnlock()
	if !ok {
		return NewBlindStopper(inv, fmt.Errorf("unknown entity action %q", inv.Name), logger)
	}
	action, err := f(r.store, inv.Parameters)
	if err != nil {
		return NewBlindStopper(inv, err, logger)
	}
	return action
}

type BlindStopper struct {
	invocation translation.ActionInvocation
	cause      error
	logger     *slog.Logger
}

func NewBlindStopper(inv translation.ActionInvocation, cause error, logger *slog.Logger) *BlindStopper {
	return &BlindStopper{invocation: inv, cause: cause, logger: logger}
}

func (a *BlindStopper) Name() string { return a.invocation.Name }

func (a *BlindStopper) Invoke(ctx context.Context, entity *models.Entity) error {
	a.logger.WarnContext(ctx, "skipping unusable bulk action",
		"action", a.invocation.String(),
		"entity_id", entity.ID.String(),
		"cause", a.cause.Error(),
	)
	return nil
}

type removeEntity struct {
	store EntityStore
}

func newRemoveEntity(store EntityStore, params []string) (EntityAction, error) {
	if len(params) != 0 {
		return nil, fmt.Errorf("%s takes no parameters", ActionRemoveEntity)
	}
	return &removeEntity{store: store}, nil
}

func (a *removeEntity) Name() string { return ActionRemoveEntity }

func (a *removeEntity) Invoke(ctx context.Context, entity *models.Entity) error {
	err := a.store.Remove(ctx, entity.ID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	return err
}

type changeStatus struct {
	store  EntityStore
	status models.EntityStatus
}

func newChangeStatus(store EntityStore, params []string) (EntityAction, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("%s takes exactly one parameter", ActionChangeStatus)
	}
	status := models.EntityStatus(params[0])
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown entity status %q", params[0])
	}
	return &changeStatus{store: store, status: status}, nil
}

func (a *changeStatus) Name() string { return ActionChangeStatus }

func (a *changeStatus) Invoke(ctx context.Context, entity *models.Entity) error {
	if entity.Status == a.status {
		return nil
	}
	return a.store.SetStatus(ctx, entity.ID, a.status)
}

type removeAttribute struct {
	store EntityStore
	name  string
	group string
}

func newRemoveAttribute(store EntityStore, params []string) (EntityAction, error) {
	if len(params) < 1 || len(params) > 2 || params[0] == "" {
		return nil, fmt.Errorf("%s takes an attribute name and an optional group", ActionRemoveAttribute)
	}
	group := models.RootGroup
	if len(params) == 2 && params[1] != "" {
		group = params[1]
	}
	return &removeAttribute{store: store, name: params[0], group: group}, nil
}

func (a *removeAttribute) Name() string { return ActionRemoveAttribute }

// Invoke is a no-op when the entity does not have the attribute.
func (a *removeAttribute) Invoke(ctx context.Context, entity *models.Entity) error {
	err := a.store.RemoveAttribute(ctx, entity.ID, a.group, a.name)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	return err
}
