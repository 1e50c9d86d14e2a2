package sync

import (
	"context"
	"hash/fnv"
)

const DefaultShards = 32

// KeyedLock serializes work per key without one global lock. Keys are spread
// over a fixed number of shards, so unrelated keys may share a shard.
// Each shard is a one-slot channel, which lets waiters give up when their
// context ends.
type KeyedLock struct {
	shards []chan struct{}
}

// NewKeyedLock creates a lock with n shards. n <= 0 uses DefaultShards.
func NewKeyedLock(n int) *KeyedLock {
	if n <= 0 {
		n = DefaultShards
	}
	l := &KeyedLock{shards: make([]chan struct{}, n)}
	for i := range l.shards {
		l.shards[i] = make(chan struct{}, 1)
	}
	return l
}

// Acquire blocks until the shard for key is free or ctx is done. The returned
// release func must be called exactly once.
func (l *KeyedLock) Acquire(ctx context.Context, key string) (release func(), err error) {
	shard := l.shards[l.shardFor(key)]
	select {
	case shard <- struct{}{}:
		return func() { <-shard }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Empty keys share shard 0.
func (l *KeyedLock) shardFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(l.shards)))
}
