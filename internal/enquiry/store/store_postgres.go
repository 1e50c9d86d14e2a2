package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"idmcore/internal/enquiry/models"
	id "idmcore/pkg/domain"
	"idmcore/pkg/platform/sentinel"
)

// PostgresStore persists enquiry responses in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a store bound to a transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const selectResponse = `SELECT id, form_id, entity_id, status, request, admin_comments, submitted_at, updated_at FROM enquiry_responses`

func (s *PostgresStore) Create(ctx context.Context, resp *models.Response) error {
	request, comments, err := encode(resp)
	if err != nil {
		return err
	}
	_, err = s.execer().ExecContext(ctx, `
		INSERT INTO enquiry_responses (id, form_id, entity_id, status, request, admin_comments, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(resp.ID), resp.FormID, uuid.UUID(resp.EntityID), string(resp.Status), request, comments, resp.SubmittedAt, resp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create response: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, responseID id.ResponseID) (*models.Response, error) {
	return s.find(ctx, selectResponse+` WHERE id = $1`, responseID)
}

// FindForUpdate locks the row for the rest of the transaction.
func (s *PostgresStore) FindForUpdate(ctx context.Context, responseID id.ResponseID) (*models.Response, error) {
	return s.find(ctx, selectResponse+` WHERE id = $1 FOR UPDATE`, responseID)
}

func (s *PostgresStore) find(ctx context.Context, query string, responseID id.ResponseID) (*models.Response, error) {
	resp, err := scanResponse(s.execer().QueryRowContext(ctx, query, uuid.UUID(responseID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("response %s: %w", responseID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find response: %w", err)
	}
	return resp, nil
}

func (s *PostgresStore) Update(ctx context.Context, resp *models.Response) error {
	request, comments, err := encode(resp)
	if err != nil {
		return err
	}
	res, err := s.execer().ExecContext(ctx, `
		UPDATE enquiry_responses
		SET status = $2, request = $3, admin_comments = $4, updated_at = $5
		WHERE id = $1
	`, uuid.UUID(resp.ID), string(resp.Status), request, comments, resp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update response: %w", err)
	}
	return requireRow(res, resp.ID)
}

func (s *PostgresStore) Delete(ctx context.Context, responseID id.ResponseID) error {
	res, err := s.execer().ExecContext(ctx, `DELETE FROM enquiry_responses WHERE id = $1`, uuid.UUID(responseID))
	if err != nil {
		return fmt.Errorf("delete response: %w", err)
	}
	return requireRow(res, responseID)
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityID id.EntityID) ([]*models.Response, error) {
	return s.list(ctx, selectResponse+` WHERE entity_id = $1 ORDER BY submitted_at`, uuid.UUID(entityID))
}

// FindPending returns the pending responses of entityID to formID, oldest
// first. Inside a transaction the rows stay locked until it ends.
func (s *PostgresStore) FindPending(ctx context.Context, entityID id.EntityID, formID string) ([]*models.Response, error) {
	return s.list(ctx, selectResponse+` WHERE entity_id = $1 AND form_id = $2 AND status = $3 ORDER BY submitted_at FOR UPDATE`,
		uuid.UUID(entityID), formID, string(models.StatusPending))
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Response, error) {
	rows, err := s.execer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()
	var out []*models.Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResponse(row scanner) (*models.Response, error) {
	var (
		resp              models.Response
		respID, entityID  uuid.UUID
		status            string
		request, comments []byte
	)
	if err := row.Scan(&respID, &resp.FormID, &entityID, &status, &request, &comments, &resp.SubmittedAt, &resp.UpdatedAt); err != nil {
		return nil, err
	}
	resp.ID = id.ResponseID(respID)
	resp.EntityID = id.EntityID(entityID)
	resp.Status = models.Status(status)
	if err := json.Unmarshal(request, &resp.Request); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if err := json.Unmarshal(comments, &resp.AdminComments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return &resp, nil
}

func encode(resp *models.Response) (request, comments []byte, err error) {
	request, err = json.Marshal(resp.Request)
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}
	list := resp.AdminComments
	if list == nil {
		list = []models.AdminComment{}
	}
	comments, err = json.Marshal(list)
	if err != nil {
		return nil, nil, fmt.Errorf("encode comments: %w", err)
	}
	return request, comments, nil
}

func requireRow(res sql.Result, responseID id.ResponseID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("response %s: %w", responseID, sentinel.ErrNotFound)
	}
	return nil
}
