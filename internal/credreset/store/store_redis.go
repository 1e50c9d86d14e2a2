package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"idmcore/internal/credreset/models"
	id "idmcore/pkg/domain"
	"idmcore/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "credreset:session:"
	attemptKeyPrefix = "credreset:attempts:"
)

// RedisSessionStore shares sessions between instances. Expiry is left to
// Redis key TTLs.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(sessionID id.ResetSessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func (s *RedisSessionStore) Create(ctx context.Context, session *models.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal reset session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("create reset session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID id.ResetSessionID) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reset session: %w", err)
	}
	return decodeSession(data)
}

// Advance uses WATCH so a concurrent advance of the same session aborts
// the transaction instead of overwriting it.
func (s *RedisSessionStore) Advance(ctx context.Context, sessionID id.ResetSessionID, expected models.Step, fn func(*models.Session) error) (*models.Session, error) {
	key := sessionKey(sessionID)
	var result *models.Session

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get reset session for advance: %w", err)
		}
		session, err := decodeSession(data)
		if err != nil {
			return err
		}
		if session.Step != expected {
			return fmt.Errorf("session at %s, expected %s: %w", session.Step, expected, sentinel.ErrStaleStep)
		}
		if err := fn(session); err != nil {
			return err
		}
		newData, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal reset session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, newData, redis.SetArgs{KeepTTL: true, Mode: "XX"})
			return nil
		})
		if err != nil {
			return err
		}
		result = session
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("session advanced concurrently: %w", sentinel.ErrStaleStep)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID id.ResetSessionID) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete reset session: %w", err)
	}
	return nil
}

func decodeSession(data []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal reset session: %w", err)
	}
	return &session, nil
}

// RedisAttemptStore keeps one counter per key. The first failure in a
// window sets the expiry, so the window is fixed rather than sliding.
type RedisAttemptStore struct {
	client *redis.Client
}

func NewRedisAttemptStore(client *redis.Client) *RedisAttemptStore {
	return &RedisAttemptStore{client: client}
}

func attemptKey(key string) string {
	return attemptKeyPrefix + key
}

func (s *RedisAttemptStore) Count(ctx context.Context, key string) (int, error) {
	n, err := s.client.Get(ctx, attemptKey(key)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get reset attempts: %w", err)
	}
	return n, nil
}

func (s *RedisAttemptStore) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	k := attemptKey(key)
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("record reset attempt: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *RedisAttemptStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, attemptKey(key)).Err(); err != nil {
		return fmt.Errorf("clear reset attempts: %w", err)
	}
	return nil
}
