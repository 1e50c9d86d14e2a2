// Package password verifies bcrypt-hashed passwords and keeps a short
// history so recent passwords cannot be reused.
package password

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"idmcore/internal/credential"
	"idmcore/internal/identity/models"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/requestcontext"
)

const TypeID = "password"

// Definition configures password policy.
type Definition struct {
	MinLength   int
	HistorySize int
	Cost        int
}

func DefaultDefinition() Definition {
	return Definition{MinLength: 8, HistorySize: 3, Cost: bcrypt.DefaultCost}
}

type entry struct {
	Hash string    `json:"hash"`
	Time time.Time `json:"time"`
}

// DBState is the stored JSON form. Passwords[0] is the current one.
type DBState struct {
	Passwords []entry         `json:"passwords"`
	Outdated  bool            `json:"outdated"`
	Answer    *SecurityAnswer `json:"answer,omitempty"`
}

// Used to equalize timing when the username does not resolve.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost) //nolint:errcheck // constant input

type Verificator struct {
	name    string
	def     Definition
	store   credential.EntityStore
	logger  *slog.Logger
	metrics *credential.Metrics
}

type Option func(*Verificator)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Verificator) {
		v.logger = logger
	}
}

func WithMetrics(m *credential.Metrics) Option {
	return func(v *Verificator) {
		v.metrics = m
	}
}

// New creates a verificator for the credential called name.
func New(name string, def Definition, store credential.EntityStore, opts ...Option) *Verificator {
	if def.Cost == 0 {
		def.Cost = bcrypt.DefaultCost
	}
	v := &Verificator{name: name, def: def, store: store}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

func (v *Verificator) TypeID() string         { return TypeID }
func (v *Verificator) CredentialName() string { return v.name }

// Prepare hashes raw as the new current password. Passwords still in the
// history are refused.
func (v *Verificator) Prepare(ctx context.Context, currentState, raw string) (string, error) {
	if len(raw) < v.def.MinLength {
		return "", dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters", v.def.MinLength)
	}
	current, err := parseState(currentState)
	if err != nil {
		return "", err
	}
	for _, old := range current.Passwords {
		if bcrypt.CompareHashAndPassword([]byte(old.Hash), []byte(raw)) == nil {
			return "", dErrors.New(dErrors.CodeValidation, "password was used recently")
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), v.def.Cost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "password cannot be hashed")
	}

	next := DBState{
		Passwords: []entry{{Hash: string(hash), Time: requestcontext.Now(ctx)}},
		Answer:    current.Answer,
	}
	keep := max(v.def.HistorySize-1, 0)
	next.Passwords = append(next.Passwords, current.Passwords[:min(keep, len(current.Passwords))]...)
	return encodeState(next)
}

func (v *Verificator) CheckState(state string) credential.State {
	s, err := parseState(state)
	if err != nil || len(s.Passwords) == 0 {
		return credential.StateNotSet
	}
	if s.Outdated {
		return credential.StateOutdated
	}
	return credential.StateCorrect
}

func (v *Verificator) Invalidate(state string) (string, error) {
	s, err := parseState(state)
	if err != nil {
		return "", err
	}
	s.Outdated = true
	return encodeState(s)
}

// Verify denies on every failure, including unknown users.
func (v *Verificator) Verify(ctx context.Context, username, secret string) (credential.AuthenticationResult, error) {
	result := v.verify(ctx, username, secret)
	v.metrics.Observe(TypeID, result)
	return result, nil
}

func (v *Verificator) verify(ctx context.Context, username, secret string) credential.AuthenticationResult {
	entity, cred, err := credential.LookupCredential(ctx, v.store, username, v.name, TypeID)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret)) //nolint:errcheck // timing only
		if !errors.Is(err, credential.ErrNoCredential) {
			v.logger.WarnContext(ctx, "password verification lookup failed", "error", err)
		}
		return credential.Deny()
	}
	state, err := parseState(cred.State)
	if err != nil || len(state.Passwords) == 0 {
		v.logger.WarnContext(ctx, "unreadable password state", "entity_id", entity.ID.String(), "error", err)
		return credential.Deny()
	}
	if bcrypt.CompareHashAndPassword([]byte(state.Passwords[0].Hash), []byte(secret)) != nil {
		return credential.Deny()
	}
	result := credential.AuthenticationResult{Status: credential.StatusSuccess, EntityID: entity.ID}
	if state.Outdated {
		result.OutdatedCredential = v.name
	}
	return result
}

// Replace prepares raw and stores it as entity's password.
func (v *Verificator) Replace(ctx context.Context, entity *models.Entity, raw string) error {
	current := entity.Credentials[v.name].State
	state, err := v.Prepare(ctx, current, raw)
	if err != nil {
		return err
	}
	return v.store.SetCredential(ctx, entity.ID, models.Credential{
		CredentialID: v.name,
		TypeID:       TypeID,
		State:        state,
		UpdatedAt:    requestcontext.Now(ctx),
	})
}

func parseState(raw string) (DBState, error) {
	var s DBState
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, dErrors.Wrap(err, dErrors.CodeInternal, "password state is corrupted")
	}
	return s, nil
}

func encodeState(s DBState) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode password state: %w", err)
	}
	return string(b), nil
}
