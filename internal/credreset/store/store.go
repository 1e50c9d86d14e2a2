// Package store keeps credential reset sessions and failed attempt counters.
// Sessions are ephemeral and live in memory or Redis, never in Postgres.
package store

import (
	"context"
	"time"

	"idmcore/internal/credreset/models"
	id "idmcore/pkg/domain"
)

// SessionStore persists sessions under compare-and-advance semantics.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID id.ResetSessionID) (*models.Session, error)
	// Advance loads the session, checks it is at expected and applies fn.
	// A step mismatch returns sentinel.ErrStaleStep. Nothing is saved when
	// fn fails.
	Advance(ctx context.Context, sessionID id.ResetSessionID, expected models.Step, fn func(*models.Session) error) (*models.Session, error)
	Delete(ctx context.Context, sessionID id.ResetSessionID) error
}

// AttemptStore counts failed reset attempts per username in fixed windows.
type AttemptStore interface {
	Count(ctx context.Context, key string) (int, error)
	RecordFailure(ctx context.Context, key string, window time.Duration) (int, error)
	Clear(ctx context.Context, key string) error
}
