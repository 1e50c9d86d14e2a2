// Package authzctx holds OAuth authorization requests between the initial
// redirect and the user's consent decision.
package authzctx

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	id "idmcore/pkg/domain"
	"idmcore/pkg/requestcontext"
)

// TTL is fixed. A context older than this must be restarted by the client.
const TTL = 15 * time.Minute

type OAuthAuthzContext struct {
	ID                  id.AuthzContextID `json:"id"`
	ClientID            string            `json:"clientId"`
	RedirectURI         string            `json:"redirectUri"`
	RequestedScopes     []string          `json:"requestedScopes"`
	RequestedAttributes []string          `json:"requestedAttributes"`
	CreatedAt           time.Time         `json:"createdAt"`
}

// New stamps a fresh context with the request time.
func New(ctx context.Context, clientID, redirectURI string, scopes, attributes []string) *OAuthAuthzContext {
	return &OAuthAuthzContext{
		ID:                  id.AuthzContextID(uuid.New()),
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		RequestedScopes:     slices.Clone(scopes),
		RequestedAttributes: slices.Clone(attributes),
		CreatedAt:           requestcontext.Now(ctx),
	}
}

func (c *OAuthAuthzContext) ExpiresAt() time.Time {
	return c.CreatedAt.Add(TTL)
}

// IsExpired reports whether now is strictly past CreatedAt+TTL.
func (c *OAuthAuthzContext) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt())
}

func (c *OAuthAuthzContext) HasScope(scope string) bool {
	return slices.Contains(c.RequestedScopes, scope)
}

func (c *OAuthAuthzContext) clone() *OAuthAuthzContext {
	cp := *c
	cp.RequestedScopes = slices.Clone(c.RequestedScopes)
	cp.RequestedAttributes = slices.Clone(c.RequestedAttributes)
	return &cp
}

// Store error contract:
// - Get returns sentinel.ErrNotFound for unknown ids and sentinel.ErrExpired
//   for contexts past their TTL
// - Delete of an unknown id is not an error
type Store interface {
	Save(ctx context.Context, c *OAuthAuthzContext) error
	Get(ctx context.Context, contextID id.AuthzContextID) (*OAuthAuthzContext, error)
	Delete(ctx context.Context, contextID id.AuthzContextID) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
