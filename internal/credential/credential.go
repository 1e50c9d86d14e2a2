// Package credential defines the contract shared by local credential
// verificators and a registry that selects one by credential type.
package credential

import (
	"context"
	"errors"
	"fmt"

	"idmcore/internal/identity/models"
	id "idmcore/pkg/domain"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/platform/sentinel"
)

// State summarizes stored credential state without revealing secrets.
type State string

const (
	StateNotSet   State = "notSet"
	StateOutdated State = "outdated"
	StateCorrect  State = "correct"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusDeny    Status = "deny"
)

// AuthenticationResult is the outcome of a verification. OutdatedCredential
// names the credential when it verified but must be changed.
type AuthenticationResult struct {
	Status             Status      `json:"status"`
	EntityID           id.EntityID `json:"entityId,omitzero"`
	OutdatedCredential string      `json:"outdatedCredential,omitempty"`
}

func Deny() AuthenticationResult {
	return AuthenticationResult{Status: StatusDeny}
}

func (r AuthenticationResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Verificator checks and maintains one kind of local credential.
// State values are the JSON documents stored in models.Credential.State.
type Verificator interface {
	TypeID() string
	CredentialName() string
	// Prepare turns raw user input into new stored state, given the current one.
	Prepare(ctx context.Context, currentState, raw string) (string, error)
	CheckState(state string) State
	// Invalidate marks the state outdated so the owner must change it.
	Invalidate(state string) (string, error)
	Verify(ctx context.Context, username, secret string) (AuthenticationResult, error)
}

// EntityStore is the slice of the identity store verificators use.
type EntityStore interface {
	ResolveIdentity(ctx context.Context, typeIDs []string, value string) (*models.Entity, error)
	SetCredential(ctx context.Context, entityID id.EntityID, cred models.Credential) error
}

// EntityLister walks every entity, for changes that touch all stored credentials.
type EntityLister interface {
	List(ctx context.Context) ([]*models.Entity, error)
}

// UsernameIdentityTypes are the identity types a username may match.
var UsernameIdentityTypes = []string{models.IdentityTypeUsername, models.IdentityTypeEmail}

// ErrNoCredential is returned by LookupCredential when the entity has no
// credential of the expected name and type.
var ErrNoCredential = errors.New("credential not set")

// LookupCredential resolves username and returns its credential named name.
func LookupCredential(ctx context.Context, store EntityStore, username, name, typeID string) (*models.Entity, models.Credential, error) {
	entity, err := store.ResolveIdentity(ctx, UsernameIdentityTypes, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.Credential{}, fmt.Errorf("resolve %s: %w", username, ErrNoCredential)
		}
		return nil, models.Credential{}, fmt.Errorf("resolve %s: %w", username, err)
	}
	cred, ok := entity.Credentials[name]
	if !ok || cred.TypeID != typeID || cred.State == "" {
		return entity, models.Credential{}, ErrNoCredential
	}
	return entity, cred, nil
}

// Registry selects a verificator by credential type id or by the name of the
// credential it serves.
type Registry struct {
	byType map[string]Verificator
	byName map[string]Verificator
}

func NewRegistry(verificators ...Verificator) (*Registry, error) {
	r := &Registry{
		byType: make(map[string]Verificator, len(verificators)),
		byName: make(map[string]Verificator, len(verificators)),
	}
	for _, v := range verificators {
		if _, dup := r.byType[v.TypeID()]; dup {
			return nil, fmt.Errorf("duplicate verificator for type %s", v.TypeID())
		}
		if _, dup := r.byName[v.CredentialName()]; dup {
			return nil, fmt.Errorf("duplicate verificator for credential %s", v.CredentialName())
		}
		r.byType[v.TypeID()] = v
		r.byName[v.CredentialName()] = v
	}
	return r, nil
}

func (r *Registry) ByName(name string) (Verificator, error) {
	v, ok := r.byName[name]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeConfiguration, "unknown credential %s", name)
	}
	return v, nil
}

func (r *Registry) Get(typeID string) (Verificator, error) {
	v, ok := r.byType[typeID]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeConfiguration, "no verificator for credential type %s", typeID)
	}
	return v, nil
}

// ForCredential returns the verificator that understands cred's state.
func (r *Registry) ForCredential(cred models.Credential) (Verificator, error) {
	return r.Get(cred.TypeID)
}
