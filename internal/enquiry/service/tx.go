package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "idmcore/pkg/domain-errors"
	platformsync "idmcore/pkg/platform/sync"
)

var (
	shardLockWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "idm_enquiry_shard_lock_wait_seconds",
		Help:    "Time spent waiting to acquire an enquiry shard lock",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	shardLockAcquisitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idm_enquiry_shard_lock_acquisitions_total",
		Help: "Total number of enquiry shard lock acquisitions",
	})
)

const defaultTxTimeout = 5 * time.Second

// ShardedTx serializes decisions on the same response with a sharded lock.
// It has no rollback: a failing fn leaves earlier writes in place, so it is
// only suitable for the in-memory stores used in development and tests.
type ShardedTx struct {
	locks   *platformsync.KeyedLock
	stores  Stores
	timeout time.Duration
}

func NewShardedTx(stores Stores) *ShardedTx {
	return &ShardedTx{locks: platformsync.NewKeyedLock(platformsync.DefaultShards), stores: stores, timeout: defaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	lockStart := time.Now()
	release, err := t.locks.Acquire(ctx, txKey(ctx))
	shardLockWaitDuration.Observe(time.Since(lockStart).Seconds())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: lock wait exceeded deadline")
	}
	shardLockAcquisitions.Inc()
	defer release()

	return fn(ctx, t.stores)
}

type txKeyCtx struct{}

// withTxKey pins the shard used by RunInTx to one response.
func withTxKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, txKeyCtx{}, key)
}

func txKey(ctx context.Context) string {
	if key, ok := ctx.Value(txKeyCtx{}).(string); ok {
		return key
	}
	return ""
}
