package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"idmcore/internal/credreset/models"
	id "idmcore/pkg/domain"
	"idmcore/pkg/platform/sentinel"
	"idmcore/pkg/requestcontext"
)

type SessionStoreSuite struct {
	suite.Suite
	store *InMemorySessionStore
	ctx   context.Context
	now   time.Time
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func (s *SessionStoreSuite) SetupTest() {
	s.store = NewInMemorySessionStore()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *SessionStoreSuite) newSession() *models.Session {
	sess := &models.Session{ID: id.ResetSessionID(uuid.New()), Step: models.StepInitiated, CreatedAt: s.now}
	s.Require().NoError(s.store.Create(s.ctx, sess, 10*time.Minute))
	return sess
}

func (s *SessionStoreSuite) TestAdvance() {
	sess := s.newSession()

	s.Run("moves on from the expected step", func() {
		got, err := s.store.Advance(s.ctx, sess.ID, models.StepInitiated, func(m *models.Session) error {
			m.Step = models.StepFinal
			m.Username = "alice"
			return nil
		})
		s.Require().NoError(err)
		s.Equal(models.StepFinal, got.Step)

		stored, err := s.store.Get(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal("alice", stored.Username)
	})

	s.Run("rejects a stale step", func() {
		_, err := s.store.Advance(s.ctx, sess.ID, models.StepInitiated, func(*models.Session) error { return nil })
		s.ErrorIs(err, sentinel.ErrStaleStep)
	})

	s.Run("keeps the session when fn fails", func() {
		boom := errors.New("boom")
		_, err := s.store.Advance(s.ctx, sess.ID, models.StepFinal, func(m *models.Session) error {
			m.Step = models.StepInitiated
			return boom
		})
		s.ErrorIs(err, boom)
		stored, err := s.store.Get(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(models.StepFinal, stored.Step)
	})
}

func (s *SessionStoreSuite) TestExpiry() {
	sess := s.newSession()

	later := requestcontext.WithTime(context.Background(), s.now.Add(10*time.Minute))
	_, err := s.store.Get(later, sess.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Advance(later, sess.ID, models.StepInitiated, func(*models.Session) error { return nil })
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SessionStoreSuite) TestCreateConflictAndDelete() {
	sess := s.newSession()
	s.ErrorIs(s.store.Create(s.ctx, sess, time.Minute), sentinel.ErrConflict)

	s.Require().NoError(s.store.Delete(s.ctx, sess.ID))
	_, err := s.store.Get(s.ctx, sess.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SessionStoreSuite) TestGetReturnsCopy() {
	sess := s.newSession()
	got, err := s.store.Get(s.ctx, sess.ID)
	s.Require().NoError(err)
	got.Step = models.StepFinal

	again, err := s.store.Get(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(models.StepInitiated, again.Step)
}

func TestInMemoryAttemptStore(t *testing.T) {
	store := NewInMemoryAttemptStore()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), start)

	for i := 1; i <= 3; i++ {
		n, err := store.RecordFailure(ctx, "alice", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	n, err := store.Count(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	t.Run("window closes", func(t *testing.T) {
		later := requestcontext.WithTime(context.Background(), start.Add(time.Hour))
		n, err := store.Count(later, "alice")
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = store.RecordFailure(later, "alice", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, "alice"))
		n, err := store.Count(ctx, "alice")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
