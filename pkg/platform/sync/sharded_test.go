package sync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLock_SameKeySerializes(t *testing.T) {
	l := NewKeyedLock(0)
	counter := 0
	var wg sync.WaitGroup

	for range 100 {
		wg.Go(func() {
			release, err := l.Acquire(context.Background(), "resp-1")
			if err != nil {
				return
			}
			defer release()
			counter++
		})
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyedLock_WaiterGivesUp(t *testing.T) {
	l := NewKeyedLock(4)
	release, err := l.Acquire(context.Background(), "resp-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "resp-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeyedLock_ReleaseFreesShard(t *testing.T) {
	l := NewKeyedLock(1)
	release, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	release()

	// one shard: "b" shares it with "a"
	release, err = l.Acquire(context.Background(), "b")
	require.NoError(t, err)
	release()
}

func TestKeyedLock_Distribution(t *testing.T) {
	l := NewKeyedLock(DefaultShards)
	shards := make(map[int]bool)
	for _, key := range []string{"resp-1", "resp-2", "entity-a", "entity-b", "rule-x", "rule-y"} {
		shards[l.shardFor(key)] = true
	}
	assert.GreaterOrEqual(t, len(shards), 3)
	assert.Equal(t, 0, l.shardFor(""))
}
