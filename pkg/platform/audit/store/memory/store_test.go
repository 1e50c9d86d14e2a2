package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "idmcore/pkg/platform/audit"
)

func TestInMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := range 6 {
		action := audit.EventResetStarted
		if i%2 == 1 {
			action = audit.EventResetFailed
		}
		require.NoError(t, store.Append(ctx, audit.Event{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Action:    string(action),
			Subject:   fmt.Sprintf("user-%d", i%3),
		}))
	}

	t.Run("filters by subject in arrival order", func(t *testing.T) {
		events, err := store.List(ctx, audit.Query{Subject: "user-0"})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.True(t, events[0].Timestamp.Before(events[1].Timestamp))
	})

	t.Run("filters by action and since", func(t *testing.T) {
		events, err := store.List(ctx, audit.Query{
			Action: string(audit.EventResetFailed),
			Since:  base.Add(2 * time.Minute),
		})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, base.Add(3*time.Minute), events[0].Timestamp)
	})

	t.Run("limit keeps the newest", func(t *testing.T) {
		events, err := store.List(ctx, audit.Query{Limit: 2})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, base.Add(5*time.Minute), events[1].Timestamp)
	})
}

func TestInMemoryStore_CopiesDetails(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	details := map[string]string{"step": "1"}
	require.NoError(t, store.Append(ctx, audit.Event{Subject: "alice", Details: details}))

	details["step"] = "2"

	events, err := store.List(ctx, audit.Query{Subject: "alice"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "1", events[0].Details["step"])
	assert.Equal(t, 1, store.Len())
}
