package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	id "idmcore/pkg/domain"
	audit "idmcore/pkg/platform/audit"
)

const insertEvent = `
	INSERT INTO audit_events (
		id, timestamp, action, subject, entity_id,
		decision, reason, client_ip, user_agent, request_id, details
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const selectColumns = `timestamp, action, subject, entity_id, decision, reason,
	client_ip, user_agent, request_id, details`

// Store is the audit_events backed audit.Store.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	var entityID uuid.NullUUID
	if !event.EntityID.IsNil() {
		entityID = uuid.NullUUID{UUID: uuid.UUID(event.EntityID), Valid: true}
	}
	details := []byte("{}")
	if len(event.Details) > 0 {
		var err error
		if details, err = json.Marshal(event.Details); err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, insertEvent,
		uuid.New(), event.Timestamp, event.Action, event.Subject, entityID,
		event.Decision, event.Reason, event.ClientIP, event.UserAgent, event.RequestID,
		details,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// List selects the newest matches and returns them oldest first.
func (s *Store) List(ctx context.Context, q audit.Query) ([]audit.Event, error) {
	query, args := buildList(q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	slices.Reverse(events)
	return events, nil
}

func buildList(q audit.Query) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if q.Subject != "" {
		add("subject = $%d", q.Subject)
	}
	if q.Action != "" {
		add("action = $%d", q.Action)
	}
	if !q.Since.IsZero() {
		add("timestamp >= $%d", q.Since)
	}

	var b strings.Builder
	b.WriteString("SELECT " + selectColumns + " FROM audit_events")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, q.EffectiveLimit())
	fmt.Fprintf(&b, " ORDER BY timestamp DESC LIMIT $%d", len(args))
	return b.String(), args
}

func scanEvent(rows *sql.Rows) (audit.Event, error) {
	var (
		event    audit.Event
		entityID uuid.NullUUID
		details  []byte
	)
	err := rows.Scan(
		&event.Timestamp, &event.Action, &event.Subject, &entityID, &event.Decision,
		&event.Reason, &event.ClientIP, &event.UserAgent, &event.RequestID, &details,
	)
	if err != nil {
		return audit.Event{}, fmt.Errorf("scan audit event: %w", err)
	}
	if entityID.Valid {
		event.EntityID = id.EntityID(entityID.UUID)
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &event.Details); err != nil {
			return audit.Event{}, fmt.Errorf("decode audit details: %w", err)
		}
		if len(event.Details) == 0 {
			event.Details = nil
		}
	}
	return event, nil
}
