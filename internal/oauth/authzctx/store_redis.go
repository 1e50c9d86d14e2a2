package authzctx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "idmcore/pkg/domain"
	"idmcore/pkg/platform/sentinel"
	"idmcore/pkg/requestcontext"
)

const keyPrefix = "oauth:authzctx:"

// RedisStore lets any instance resume a context. Keys carry the remaining
// lifetime as TTL, so DeleteExpired has nothing to do.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func contextKey(contextID id.AuthzContextID) string {
	return keyPrefix + contextID.String()
}

func (s *RedisStore) Save(ctx context.Context, c *OAuthAuthzContext) error {
	ttl := c.ExpiresAt().Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return fmt.Errorf("authz context %s: %w", c.ID, sentinel.ErrExpired)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal authz context: %w", err)
	}
	if err := s.client.Set(ctx, contextKey(c.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save authz context: %w", err)
	}
	return nil
}

// Get checks the wall clock as well as the key TTL since Redis expiry is lazy.
func (s *RedisStore) Get(ctx context.Context, contextID id.AuthzContextID) (*OAuthAuthzContext, error) {
	data, err := s.client.Get(ctx, contextKey(contextID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("authz context not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get authz context: %w", err)
	}
	c, err := decodeContext(data)
	if err != nil {
		return nil, err
	}
	if c.IsExpired(requestcontext.Now(ctx)) {
		return nil, fmt.Errorf("authz context %s: %w", contextID, sentinel.ErrExpired)
	}
	return c, nil
}

func (s *RedisStore) Delete(ctx context.Context, contextID id.AuthzContextID) error {
	if err := s.client.Del(ctx, contextKey(contextID)).Err(); err != nil {
		return fmt.Errorf("delete authz context: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func decodeContext(data []byte) (*OAuthAuthzContext, error) {
	var c OAuthAuthzContext
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode authz context: %w", err)
	}
	return &c, nil
}
