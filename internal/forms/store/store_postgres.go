package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"idmcore/internal/forms"
	"idmcore/pkg/platform/sentinel"
)

// PostgresStore persists form definitions as JSONB documents.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, form *forms.EnquiryForm) error {
	def, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("marshal form: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO enquiry_forms (id, definition) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET definition = EXCLUDED.definition
	`, form.ID, def)
	if err != nil {
		return fmt.Errorf("save form: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, formID string) (*forms.EnquiryForm, error) {
	var def []byte
	err := s.db.QueryRowContext(ctx, `SELECT definition FROM enquiry_forms WHERE id = $1`, formID).Scan(&def)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("form %s: %w", formID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find form: %w", err)
	}
	var form forms.EnquiryForm
	if err := json.Unmarshal(def, &form); err != nil {
		return nil, fmt.Errorf("unmarshal form: %w", err)
	}
	return &form, nil
}
