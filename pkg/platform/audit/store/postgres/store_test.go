package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "idmcore/pkg/domain"
	audit "idmcore/pkg/platform/audit"
)

var columns = []string{
	"timestamp", "action", "subject", "entity_id", "decision", "reason",
	"client_ip", "user_agent", "request_id", "details",
}

func TestStore_Append(t *testing.T) {
	t.Run("writes details as json", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		now := time.Now()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
			WithArgs(sqlmock.AnyArg(), now, "otp_denied", "bob", sqlmock.AnyArg(), "deny", "", "", "", "req-1",
				[]byte(`{"credential":"otp"}`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = New(db).Append(context.Background(), audit.Event{
			Timestamp: now,
			Action:    string(audit.EventOTPDenied),
			Subject:   "bob",
			Decision:  "deny",
			RequestID: "req-1",
			Details:   map[string]string{"credential": "otp"},
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps driver errors", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).WillReturnError(errors.New("conn reset"))

		err = New(db).Append(context.Background(), audit.Event{Action: string(audit.EventBulkRun)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert audit event")
	})
}

func TestStore_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	entityID := uuid.New()
	now := time.Now()
	since := now.Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events WHERE subject = $1 AND timestamp >= $2 ORDER BY timestamp DESC LIMIT $3")).
		WithArgs("alice", since, 10).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(now, "credential_reset_completed", "alice", entityID.String(), "", "", "10.0.0.1", "curl", "req-2", []byte("{}")).
			AddRow(now.Add(-time.Minute), "credential_reset_started", "alice", nil, "", "", "", "", "req-1", []byte(`{"step":"1"}`)))

	events, err := New(db).List(context.Background(), audit.Query{Subject: "alice", Since: since, Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "credential_reset_started", events[0].Action)
	assert.True(t, events[0].EntityID.IsNil())
	assert.Equal(t, map[string]string{"step": "1"}, events[0].Details)

	assert.Equal(t, id.EntityID(entityID), events[1].EntityID)
	assert.Nil(t, events[1].Details)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildList(t *testing.T) {
	tests := []struct {
		name      string
		query     audit.Query
		wantWhere string
		wantArgs  []any
	}{
		{
			name:     "no filters",
			query:    audit.Query{},
			wantArgs: []any{audit.MaxQueryLimit},
		},
		{
			name:      "action only",
			query:     audit.Query{Action: "bulk_rule_run", Limit: 3},
			wantWhere: " WHERE action = $1",
			wantArgs:  []any{"bulk_rule_run", 3},
		},
		{
			name:      "subject and action",
			query:     audit.Query{Subject: "rule-1", Action: "bulk_rule_run", Limit: 10_000},
			wantWhere: " WHERE subject = $1 AND action = $2",
			wantArgs:  []any{"rule-1", "bulk_rule_run", audit.MaxQueryLimit},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildList(tt.query)
			assert.Contains(t, query, "FROM audit_events"+tt.wantWhere+" ORDER BY")
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
