// Package otp verifies time-based one-time passwords (RFC 6238) against
// enrolled secrets.
package otp

import (
	"context"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"idmcore/internal/credential"
	"idmcore/internal/identity/models"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/platform/audit"
	"idmcore/pkg/requestcontext"
)

const TypeID = "otp"

type Verificator struct {
	name    string
	mu      sync.RWMutex
	def     Definition
	store   credential.EntityStore
	lister  credential.EntityLister
	logger  *slog.Logger
	auditor *audit.Logger
	metrics *credential.Metrics
}

type Option func(*Verificator)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Verificator) {
		v.logger = logger
	}
}

func WithAuditor(a *audit.Logger) Option {
	return func(v *Verificator) {
		v.auditor = a
	}
}

func WithMetrics(m *credential.Metrics) Option {
	return func(v *Verificator) {
		v.metrics = m
	}
}

// WithEntityLister lets UpdateDefinition reach every stored credential.
func WithEntityLister(l credential.EntityLister) Option {
	return func(v *Verificator) {
		v.lister = l
	}
}

// New creates a verificator for the credential called name.
func New(name string, def Definition, store credential.EntityStore, opts ...Option) (*Verificator, error) {
	if err := checkDefinition(def); err != nil {
		return nil, err
	}
	v := &Verificator{name: name, def: def, store: store}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v, nil
}

func checkDefinition(def Definition) error {
	if _, err := def.Params.Algorithm.otp(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeConfiguration, err.Error())
	}
	if def.Params.CodeLength < 6 || def.Params.CodeLength > 8 {
		return dErrors.New(dErrors.CodeConfiguration, "otp code length must be between 6 and 8")
	}
	if def.Params.Period <= 0 || def.AllowedDriftSteps < 0 {
		return dErrors.New(dErrors.CodeConfiguration, "otp period and drift must not be negative")
	}
	return nil
}

func (v *Verificator) TypeID() string         { return TypeID }
func (v *Verificator) CredentialName() string { return v.name }

func (v *Verificator) Definition() Definition {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.def
}

// UpdateDefinition replaces the definition. When the change alters how codes
// are derived, every enrolled credential of this name is marked outdated;
// the number marked is returned.
func (v *Verificator) UpdateDefinition(ctx context.Context, updated Definition) (int, error) {
	if err := checkDefinition(updated); err != nil {
		return 0, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if !IsDefinitionChangeOutdating(v.def, updated) {
		v.def = updated
		return 0, nil
	}
	if v.lister == nil {
		return 0, dErrors.New(dErrors.CodeConfiguration, "otp definition change needs an entity lister")
	}
	entities, err := v.lister.List(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list entities")
	}
	// The old definition stays until every credential is marked, so a retry
	// after a failed walk is still an outdating change.
	outdated := 0
	for _, entity := range entities {
		cred, ok := entity.Credentials[v.name]
		if !ok || cred.TypeID != TypeID || v.CheckState(cred.State) != credential.StateCorrect {
			continue
		}
		cred.State, err = v.Invalidate(cred.State)
		if err != nil {
			v.logger.WarnContext(ctx, "skipping unreadable otp state", "entity_id", entity.ID.String(), "error", err)
			continue
		}
		cred.UpdatedAt = requestcontext.Now(ctx)
		if err := v.store.SetCredential(ctx, entity.ID, cred); err != nil {
			return outdated, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark otp credential outdated")
		}
		outdated++
		v.auditor.Log(ctx, audit.EventCredentialOutdated,
			"subject", v.name,
			"entity_id", entity.ID.String(),
			"reason", "otp parameters changed",
		)
	}
	v.def = updated
	v.logger.InfoContext(ctx, "otp definition changed", "credential", v.name, "outdated", outdated)
	return outdated, nil
}

// Enrollment is what a user needs to configure an authenticator app.
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// NewEnrollment generates a fresh secret for account using the definition's parameters.
func (v *Verificator) NewEnrollment(account string) (Enrollment, error) {
	def := v.Definition()
	alg, _ := def.Params.Algorithm.otp() //nolint:errcheck // checked in New
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      def.Issuer,
		AccountName: account,
		Period:      uint(def.Params.Period),
		Digits:      otp.Digits(def.Params.CodeLength),
		Algorithm:   alg,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate otp key: %w", err)
	}
	return Enrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// Prepare accepts {"secret": ..., "otpParams": ...} and returns a fresh state.
// The parameters must match the current definition.
func (v *Verificator) Prepare(ctx context.Context, _ string, raw string) (string, error) {
	var in struct {
		Secret string  `json:"secret"`
		Params *Params `json:"otpParams"`
	}
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "otp credential must be a JSON document")
	}
	secret := strings.ToUpper(strings.TrimSpace(in.Secret))
	if _, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(secret, "=")); err != nil || secret == "" {
		return "", dErrors.New(dErrors.CodeValidation, "otp secret must be base32 encoded")
	}
	params := v.Definition().Params
	if in.Params != nil {
		if *in.Params != params {
			return "", dErrors.New(dErrors.CodeValidation, "otp parameters differ from the credential definition")
		}
		params = *in.Params
	}
	return encodeState(DBState{Secret: secret, Params: params, Time: requestcontext.Now(ctx)})
}

func (v *Verificator) CheckState(state string) credential.State {
	s, err := parseState(state)
	if err != nil || s.Secret == "" {
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

// Verify checks code for username. Every failure, including an unknown
// user, is a deny. Codes within AllowedDriftSteps periods of now are valid.
func (v *Verificator) Verify(ctx context.Context, username, code string) (credential.AuthenticationResult, error) {
	result, reason := v.verify(ctx, username, code)
	v.metrics.Observe(TypeID, result)
	if !result.Succeeded() {
		v.auditor.Log(ctx, audit.EventOTPDenied, "subject", username, "decision", "deny", "reason", reason)
	}
	return result, nil
}

func (v *Verificator) verify(ctx context.Context, username, code string) (credential.AuthenticationResult, string) {
	entity, cred, err := credential.LookupCredential(ctx, v.store, username, v.name, TypeID)
	if err != nil {
		if !errors.Is(err, credential.ErrNoCredential) {
			v.logger.WarnContext(ctx, "otp verification lookup failed", "error", err)
		}
		return credential.Deny(), "no credential"
	}
	state, err := parseState(cred.State)
	if err != nil || state.Secret == "" {
		v.logger.WarnContext(ctx, "unreadable otp state", "entity_id", entity.ID.String(), "error", err)
		return credential.Deny(), "bad state"
	}

	now := requestcontext.Now(ctx)
	ok, err := v.validate(code, state, now)
	if err != nil || !ok {
		return credential.Deny(), "invalid code"
	}

	state.LastSuccessfulAuthn = &now
	encoded, err := encodeState(state)
	if err != nil {
		return credential.Deny(), "state update failed"
	}
	cred.State = encoded
	cred.UpdatedAt = now
	if err := v.store.SetCredential(ctx, entity.ID, cred); err != nil {
		v.logger.ErrorContext(ctx, "failed to record otp authentication", "entity_id", entity.ID.String(), "error", err)
		return credential.Deny(), "state update failed"
	}

	result := credential.AuthenticationResult{Status: credential.StatusSuccess, EntityID: entity.ID}
	if state.Outdated {
		result.OutdatedCredential = v.name
	}
	return result, ""
}

// validate uses the parameters stored with the secret; only the drift
// tolerance comes from the current definition.
func (v *Verificator) validate(code string, state DBState, now time.Time) (bool, error) {
	alg, err := state.Params.Algorithm.otp()
	if err != nil {
		return false, err
	}
	if state.Params.Period <= 0 {
		return false, errors.New("stored otp period is not positive")
	}
	return totp.ValidateCustom(code, state.Secret, now.UTC(), totp.ValidateOpts{
		Period:    uint(state.Params.Period),
		Skew:      uint(v.Definition().AllowedDriftSteps),
		Digits:    otp.Digits(state.Params.CodeLength),
		Algorithm: alg,
	})
}

// Enroll prepares raw and stores it as entity's OTP credential.
func (v *Verificator) Enroll(ctx context.Context, entity *models.Entity, raw string) error {
	state, err := v.Prepare(ctx, entity.Credentials[v.name].State, raw)
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
