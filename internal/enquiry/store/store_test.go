package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"idmcore/internal/enquiry/models"
	"idmcore/internal/forms"
	id "idmcore/pkg/domain"
	"idmcore/pkg/platform/sentinel"
)

func newResponse() *models.Response {
	now := time.Now().UTC()
	return &models.Response{
		ID:          id.ResponseID(uuid.New()),
		FormID:      "survey",
		EntityID:    id.EntityID(uuid.New()),
		Status:      models.StatusPending,
		Request:     forms.BaseRegistrationInput{FormID: "survey"},
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
}

func (s *InMemoryStoreSuite) TestLifecycle() {
	resp := newResponse()
	s.Require().NoError(s.store.Create(s.ctx, resp))
	s.ErrorIs(s.store.Create(s.ctx, resp), sentinel.ErrConflict)

	loaded, err := s.store.FindForUpdate(s.ctx, resp.ID)
	s.Require().NoError(err)
	loaded.Decide(models.StatusAccepted, time.Now(), &models.AdminComment{Contents: "ok"})

	// Mutating a loaded copy does not touch the stored response.
	stored, err := s.store.FindByID(s.ctx, resp.ID)
	s.Require().NoError(err)
	s.True(stored.IsPending())

	s.Require().NoError(s.store.Update(s.ctx, loaded))
	stored, err = s.store.FindByID(s.ctx, resp.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAccepted, stored.Status)
	s.Len(stored.AdminComments, 1)

	list, err := s.store.ListByEntity(s.ctx, resp.EntityID)
	s.Require().NoError(err)
	s.Len(list, 1)

	s.Require().NoError(s.store.Delete(s.ctx, resp.ID))
	_, err = s.store.FindByID(s.ctx, resp.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, resp.ID), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestFindPending() {
	older := newResponse()
	older.SubmittedAt = older.SubmittedAt.Add(-time.Hour)
	newer := newResponse()
	newer.EntityID = older.EntityID
	decided := newResponse()
	decided.EntityID = older.EntityID
	decided.Status = models.StatusAccepted
	otherForm := newResponse()
	otherForm.EntityID = older.EntityID
	otherForm.FormID = "other"
	for _, resp := range []*models.Response{newer, decided, older, otherForm, newResponse()} {
		s.Require().NoError(s.store.Create(s.ctx, resp))
	}

	pending, err := s.store.FindPending(s.ctx, older.EntityID, "survey")
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(older.ID, pending[0].ID)
	s.Equal(newer.ID, pending[1].ID)

	none, err := s.store.FindPending(s.ctx, id.EntityID(uuid.New()), "survey")
	s.Require().NoError(err)
	s.Empty(none)
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "form_id", "entity_id", "status", "request", "admin_comments", "submitted_at", "updated_at"}

	t.Run("find for update locks and decodes", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		resp := newResponse()
		mock.ExpectQuery(regexp.QuoteMeta("FROM enquiry_responses WHERE id = $1 FOR UPDATE")).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				uuid.UUID(resp.ID).String(), "survey", uuid.UUID(resp.EntityID).String(), "pending",
				[]byte(`{"formId":"survey","agreements":[true]}`),
				[]byte(`[{"contents":"note","publicComment":true}]`),
				resp.SubmittedAt, resp.UpdatedAt,
			))

		loaded, err := NewPostgres(db).FindForUpdate(ctx, resp.ID)
		require.NoError(t, err)
		assert.Equal(t, resp.ID, loaded.ID)
		assert.Equal(t, resp.EntityID, loaded.EntityID)
		assert.Equal(t, []bool{true}, loaded.Request.Agreements)
		require.Len(t, loaded.AdminComments, 1)
		assert.True(t, loaded.AdminComments[0].PublicComment)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing response is not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery(regexp.QuoteMeta("FROM enquiry_responses WHERE id = $1")).
			WillReturnRows(sqlmock.NewRows(columns))

		_, err = NewPostgres(db).FindByID(ctx, id.ResponseID(uuid.New()))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("update of a vanished row is not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE enquiry_responses")).
			WithArgs(sqlmock.AnyArg(), "accepted", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		resp := newResponse()
		resp.Status = models.StatusAccepted
		assert.ErrorIs(t, NewPostgres(db).Update(ctx, resp), sentinel.ErrNotFound)
	})

	t.Run("pending lookup locks matching rows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		resp := newResponse()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE entity_id = $1 AND form_id = $2 AND status = $3 ORDER BY submitted_at FOR UPDATE")).
			WithArgs(uuid.UUID(resp.EntityID).String(), "survey", "pending").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				uuid.UUID(resp.ID).String(), "survey", uuid.UUID(resp.EntityID).String(), "pending",
				[]byte(`{"formId":"survey"}`), []byte(`[]`), resp.SubmittedAt, resp.UpdatedAt,
			))

		pending, err := NewPostgres(db).FindPending(ctx, resp.EntityID, "survey")
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, resp.ID, pending[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("create writes an empty comment list", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enquiry_responses")).
			WithArgs(sqlmock.AnyArg(), "survey", sqlmock.AnyArg(), "pending", sqlmock.AnyArg(), []byte(`[]`), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgres(db).Create(ctx, newResponse()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
