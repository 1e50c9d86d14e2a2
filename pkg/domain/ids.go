// Package domain holds the typed identifiers shared across services. Each
// kind of id is its own type so one cannot be passed where another belongs.
package domain

import (
	"regexp"

	"github.com/google/uuid"

	dErrors "idmcore/pkg/domain-errors"
)

type (
	EntityID       uuid.UUID
	ResponseID     uuid.UUID
	ResetSessionID uuid.UUID
	AuthzContextID uuid.UUID
)

// RuleID names a bulk processing rule. Operators pick it, so it is free text
// limited to a URL and log friendly alphabet.
type RuleID string

const maxRuleIDLength = 128

var ruleIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

func ParseEntityID(s string) (EntityID, error)             { return parseUUID[EntityID](s, "entity ID") }
func ParseResponseID(s string) (ResponseID, error)         { return parseUUID[ResponseID](s, "response ID") }
func ParseResetSessionID(s string) (ResetSessionID, error) { return parseUUID[ResetSessionID](s, "reset session ID") }
func ParseAuthzContextID(s string) (AuthzContextID, error) { return parseUUID[AuthzContextID](s, "authorization context ID") }

func ParseRuleID(s string) (RuleID, error) {
	switch {
	case s == "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "rule ID cannot be empty")
	case len(s) > maxRuleIDLength:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "rule ID longer than %d characters", maxRuleIDLength)
	case !ruleIDPattern.MatchString(s):
		return "", dErrors.New(dErrors.CodeInvalidInput, "rule ID may only contain letters, digits and . _ : -")
	}
	return RuleID(s), nil
}

// parseUUID is for trust boundaries: it rejects the nil UUID as well as
// malformed input.
func parseUUID[T ~[16]byte](s, label string) (T, error) {
	var zero T
	if s == "" {
		return zero, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return zero, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if parsed == uuid.Nil {
		return zero, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return T(parsed), nil
}

func (id EntityID) String() string       { return uuid.UUID(id).String() }
func (id ResponseID) String() string     { return uuid.UUID(id).String() }
func (id ResetSessionID) String() string { return uuid.UUID(id).String() }
func (id AuthzContextID) String() string { return uuid.UUID(id).String() }
func (id RuleID) String() string         { return string(id) }

func (id EntityID) IsNil() bool       { return id == EntityID{} }
func (id ResponseID) IsNil() bool     { return id == ResponseID{} }
func (id ResetSessionID) IsNil() bool { return id == ResetSessionID{} }
func (id AuthzContextID) IsNil() bool { return id == AuthzContextID{} }
func (id RuleID) IsNil() bool         { return id == "" }

// Ids travel as canonical UUID strings in JSON.

func (id EntityID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id ResponseID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ResetSessionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id AuthzContextID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *EntityID) UnmarshalText(b []byte) error       { return unmarshalUUID((*[16]byte)(id), b) }
func (id *ResponseID) UnmarshalText(b []byte) error     { return unmarshalUUID((*[16]byte)(id), b) }
func (id *ResetSessionID) UnmarshalText(b []byte) error { return unmarshalUUID((*[16]byte)(id), b) }
func (id *AuthzContextID) UnmarshalText(b []byte) error { return unmarshalUUID((*[16]byte)(id), b) }

func unmarshalUUID(dst *[16]byte, b []byte) error {
	return (*uuid.UUID)(dst).UnmarshalText(b)
}
