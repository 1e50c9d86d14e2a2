// Package models holds the entity aggregate that enquiry processing,
// credential verification and bulk processing read and mutate.
package models

import (
	"slices"
	"strings"
	"time"

	id "idmcore/pkg/domain"
)

// Well-known identity types.
const (
	IdentityTypeUsername   = "userName"
	IdentityTypeEmail      = "email"
	IdentityTypeIdentifier = "identifier"
	IdentityTypeMobile     = "mobile"
)

// RootGroup is the group every entity belongs to.
const RootGroup = "/"

// EntityStatus is the administrative state of an entity.
type EntityStatus string

const (
	EntityStatusValid                  EntityStatus = "valid"
	EntityStatusAuthenticationDisabled EntityStatus = "authenticationDisabled"
	EntityStatusDisabled               EntityStatus = "disabled"
	EntityStatusOnlyLoginPermitted     EntityStatus = "onlyLoginPermitted"
)

// IsValid returns true if the status is a known value.
func (s EntityStatus) IsValid() bool {
	switch s {
	case EntityStatusValid, EntityStatusAuthenticationDisabled, EntityStatusDisabled, EntityStatusOnlyLoginPermitted:
		return true
	}
	return false
}

// IdentityParam is an identity to be attached to an entity.
type IdentityParam struct {
	TypeID    string `json:"typeId"`
	Value     string `json:"value"`
	Confirmed bool   `json:"confirmed"`
}

// Key identifies an identity independent of its confirmation state.
func (p IdentityParam) Key() string {
	return p.TypeID + "\x00" + p.Value
}

// Attribute is a named, multi-valued attribute scoped to a group.
type Attribute struct {
	Name      string   `json:"name"`
	GroupPath string   `json:"groupPath"`
	Values    []string `json:"values"`
	Confirmed bool     `json:"confirmed"`
}

// Clone returns a deep copy so callers can't mutate shared value slices.
func (a Attribute) Clone() Attribute {
	a.Values = slices.Clone(a.Values)
	return a
}

// Credential is the serialized state of one local credential of an entity.
// TypeID selects the verificator that understands State.
type Credential struct {
	CredentialID string    `json:"credentialId"`
	TypeID       string    `json:"typeId"`
	State        string    `json:"state"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Entity is a principal with its identities, group memberships and attributes.
type Entity struct {
	ID               id.EntityID
	Status           EntityStatus
	Identities       []IdentityParam
	Groups           []string
	Attributes       []Attribute
	AttributeClasses map[string][]string
	Credentials      map[string]Credential
	CreatedAt        time.Time
}

// IdentityValues returns every value of the given identity type.
func (e *Entity) IdentityValues(typeID string) []string {
	var values []string
	for _, ident := range e.Identities {
		if ident.TypeID == typeID {
			values = append(values, ident.Value)
		}
	}
	return values
}

// InGroup reports whether the entity is a member of path.
func (e *Entity) InGroup(path string) bool {
	return path == RootGroup || slices.Contains(e.Groups, path)
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	out := *e
	out.Identities = slices.Clone(e.Identities)
	out.Groups = slices.Clone(e.Groups)
	out.Attributes = make([]Attribute, len(e.Attributes))
	for i, a := range e.Attributes {
		out.Attributes[i] = a.Clone()
	}
	out.AttributeClasses = make(map[string][]string, len(e.AttributeClasses))
	for g, classes := range e.AttributeClasses {
		out.AttributeClasses[g] = slices.Clone(classes)
	}
	out.Credentials = make(map[string]Credential, len(e.Credentials))
	for k, v := range e.Credentials {
		out.Credentials[k] = v
	}
	return &out
}

// GroupChain returns every ancestor of path followed by path itself, excluding
// the root group. "/a/b/c" yields ["/a", "/a/b", "/a/b/c"].
func GroupChain(path string) []string {
	path = strings.TrimSuffix(path, "/")
	if path == "" || path == RootGroup {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	chain := make([]string, 0, len(parts))
	current := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		current += "/" + part
		chain = append(chain, current)
	}
	return chain
}
