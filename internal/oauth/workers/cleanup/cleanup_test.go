package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"idmcore/internal/oauth/authzctx"
	"idmcore/pkg/platform/sentinel"
	"idmcore/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, errors.New("redis down")
}

func TestCleanupService_RunOnce(t *testing.T) {
	created := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), created)
	store := authzctx.NewInMemoryStore()

	expired := authzctx.New(ctx, "portal", "https://portal.example.com/cb", []string{"openid"}, nil)
	require.NoError(t, store.Save(ctx, expired))
	live := authzctx.New(requestcontext.WithTime(ctx, created.Add(10*time.Minute)), "portal", "https://portal.example.com/cb", nil, nil)
	require.NoError(t, store.Save(ctx, live))

	svc, err := New(store, WithCleanupInterval(10*time.Second), WithClock(func() time.Time {
		return created.Add(20 * time.Minute)
	}))
	require.NoError(t, err)

	deleted, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	_, err = store.Get(ctx, expired.ID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = store.Get(ctx, live.ID)
	require.NoError(t, err)
}

func TestCleanupService_Errors(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	svc, err := New(failingStore{})
	require.NoError(t, err)
	_, err = svc.RunOnce(context.Background())
	require.ErrorContains(t, err, "redis down")
}

func TestCleanupService_StartStopsOnCancel(t *testing.T) {
	svc, err := New(authzctx.NewInMemoryStore(), WithCleanupInterval(time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, svc.Start(ctx), context.DeadlineExceeded)
}
