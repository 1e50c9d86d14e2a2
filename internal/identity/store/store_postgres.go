package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"idmcore/internal/identity/models"
	id "idmcore/pkg/domain"
	"idmcore/pkg/platform/sentinel"
)

// PostgresStore persists entities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed identity store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a PostgreSQL-backed identity store bound to a transaction.
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

func (s *PostgresStore) Create(ctx context.Context, entity *models.Entity) error {
	status := entity.Status
	if status == "" {
		status = models.EntityStatusValid
	}
	_, err := s.execer().ExecContext(ctx,
		`INSERT INTO entities (id, status, created_at) VALUES ($1, $2, $3)`,
		uuid.UUID(entity.ID), string(status), entity.CreatedAt)
	if err != nil {
		return fmt.Errorf("create entity: %w", err)
	}
	for _, ident := range entity.Identities {
		if err := s.InsertIdentity(ctx, entity.ID, ident); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, entityID id.EntityID) (*models.Entity, error) {
	entity := &models.Entity{
		ID:               entityID,
		AttributeClasses: map[string][]string{},
		Credentials:      map[string]models.Credential{},
	}
	var status string
	err := s.execer().QueryRowContext(ctx,
		`SELECT status, created_at FROM entities WHERE id = $1`,
		uuid.UUID(entityID)).Scan(&status, &entity.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entity not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find entity: %w", err)
	}
	entity.Status = models.EntityStatus(status)

	if err := s.loadIdentities(ctx, entity); err != nil {
		return nil, err
	}
	if err := s.loadGroups(ctx, entity); err != nil {
		return nil, err
	}
	if err := s.loadAttributes(ctx, entity); err != nil {
		return nil, err
	}
	if err := s.loadAttributeClasses(ctx, entity); err != nil {
		return nil, err
	}
	if err := s.loadCredentials(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *PostgresStore) loadIdentities(ctx context.Context, entity *models.Entity) error {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT type_id, value, confirmed FROM identities WHERE entity_id = $1 ORDER BY type_id, value`,
		uuid.UUID(entity.ID))
	if err != nil {
		return fmt.Errorf("load identities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ident models.IdentityParam
		if err := rows.Scan(&ident.TypeID, &ident.Value, &ident.Confirmed); err != nil {
			return fmt.Errorf("scan identity: %w", err)
		}
		entity.Identities = append(entity.Identities, ident)
	}
	return rows.Err()
}

func (s *PostgresStore) loadGroups(ctx context.Context, entity *models.Entity) error {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT group_path FROM group_members WHERE entity_id = $1 ORDER BY group_path`,
		uuid.UUID(entity.ID))
	if err != nil {
		return fmt.Errorf("load groups: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return fmt.Errorf("scan group: %w", err)
		}
		entity.Groups = append(entity.Groups, path)
	}
	return rows.Err()
}

func (s *PostgresStore) loadAttributes(ctx context.Context, entity *models.Entity) error {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT group_path, name, vals, confirmed FROM attributes WHERE entity_id = $1 ORDER BY group_path, name`,
		uuid.UUID(entity.ID))
	if err != nil {
		return fmt.Errorf("load attributes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var attr models.Attribute
		var raw []byte
		if err := rows.Scan(&attr.GroupPath, &attr.Name, &raw, &attr.Confirmed); err != nil {
			return fmt.Errorf("scan attribute: %w", err)
		}
		if err := json.Unmarshal(raw, &attr.Values); err != nil {
			return fmt.Errorf("decode attribute %s: %w", attr.Name, err)
		}
		entity.Attributes = append(entity.Attributes, attr)
	}
	return rows.Err()
}

func (s *PostgresStore) loadAttributeClasses(ctx context.Context, entity *models.Entity) error {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT group_path, classes FROM attribute_classes WHERE entity_id = $1`,
		uuid.UUID(entity.ID))
	if err != nil {
		return fmt.Errorf("load attribute classes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		var raw []byte
		if err := rows.Scan(&path, &raw); err != nil {
			return fmt.Errorf("scan attribute classes: %w", err)
		}
		var classes []string
		if err := json.Unmarshal(raw, &classes); err != nil {
			return fmt.Errorf("decode attribute classes: %w", err)
		}
		entity.AttributeClasses[path] = classes
	}
	return rows.Err()
}

func (s *PostgresStore) loadCredentials(ctx context.Context, entity *models.Entity) error {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT credential_id, type_id, state, updated_at FROM credentials WHERE entity_id = $1`,
		uuid.UUID(entity.ID))
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cred models.Credential
		if err := rows.Scan(&cred.CredentialID, &cred.TypeID, &cred.State, &cred.UpdatedAt); err != nil {
			return fmt.Errorf("scan credential: %w", err)
		}
		entity.Credentials[cred.CredentialID] = cred
	}
	return rows.Err()
}

func (s *PostgresStore) ResolveIdentity(ctx context.Context, typeIDs []string, value string) (*models.Entity, error) {
	for _, typeID := range typeIDs {
		var owner uuid.UUID
		err := s.execer().QueryRowContext(ctx,
			`SELECT entity_id FROM identities WHERE type_id = $1 AND value = $2`,
			typeID, value).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve identity: %w", err)
		}
		return s.FindByID(ctx, id.EntityID(owner))
	}
	return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
}

// InsertIdentity is a no-op when the identity already belongs to entityID.
func (s *PostgresStore) InsertIdentity(ctx context.Context, entityID id.EntityID, ident models.IdentityParam) error {
	var owner uuid.UUID
	err := s.execer().QueryRowContext(ctx, `
		INSERT INTO identities (type_id, value, entity_id, confirmed)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (type_id, value) DO UPDATE SET type_id = EXCLUDED.type_id
		RETURNING entity_id
	`, ident.TypeID, ident.Value, uuid.UUID(entityID), ident.Confirmed).Scan(&owner)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	if id.EntityID(owner) != entityID {
		return fmt.Errorf("identity %s/%s taken: %w", ident.TypeID, ident.Value, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) AddToGroup(ctx context.Context, entityID id.EntityID, path string) error {
	for _, group := range models.GroupChain(path) {
		_, err := s.execer().ExecContext(ctx, `
			INSERT INTO group_members (entity_id, group_path) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, uuid.UUID(entityID), group)
		if err != nil {
			return fmt.Errorf("add to group %s: %w", group, err)
		}
	}
	return nil
}

func (s *PostgresStore) isMember(ctx context.Context, entityID id.EntityID, path string) (bool, error) {
	if path == models.RootGroup {
		return true, nil
	}
	var exists bool
	err := s.execer().QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_members WHERE entity_id = $1 AND group_path = $2)`,
		uuid.UUID(entityID), path).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) AddAttributes(ctx context.Context, entityID id.EntityID, attrs []models.Attribute) error {
	for _, attr := range attrs {
		member, err := s.isMember(ctx, entityID, attr.GroupPath)
		if err != nil {
			return err
		}
		if !member {
			return fmt.Errorf("entity not in group %s: %w", attr.GroupPath, sentinel.ErrInvalidState)
		}
		raw, err := json.Marshal(attr.Values)
		if err != nil {
			return fmt.Errorf("encode attribute %s: %w", attr.Name, err)
		}
		_, err = s.execer().ExecContext(ctx, `
			INSERT INTO attributes (entity_id, group_path, name, vals, confirmed)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (entity_id, group_path, name)
			DO UPDATE SET vals = EXCLUDED.vals, confirmed = EXCLUDED.confirmed
		`, uuid.UUID(entityID), attr.GroupPath, attr.Name, raw, attr.Confirmed)
		if err != nil {
			return fmt.Errorf("upsert attribute %s: %w", attr.Name, err)
		}
	}
	return nil
}

func (s *PostgresStore) RemoveAttribute(ctx context.Context, entityID id.EntityID, groupPath, name string) error {
	res, err := s.execer().ExecContext(ctx,
		`DELETE FROM attributes WHERE entity_id = $1 AND group_path = $2 AND name = $3`,
		uuid.UUID(entityID), groupPath, name)
	if err != nil {
		return fmt.Errorf("remove attribute: %w", err)
	}
	return requireAffected(res, "attribute")
}

func (s *PostgresStore) SetAttributeClasses(ctx context.Context, entityID id.EntityID, groupPath string, classes []string) error {
	member, err := s.isMember(ctx, entityID, groupPath)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("entity not in group %s: %w", groupPath, sentinel.ErrInvalidState)
	}
	raw, err := json.Marshal(classes)
	if err != nil {
		return fmt.Errorf("encode attribute classes: %w", err)
	}
	_, err = s.execer().ExecContext(ctx, `
		INSERT INTO attribute_classes (entity_id, group_path, classes) VALUES ($1, $2, $3)
		ON CONFLICT (entity_id, group_path) DO UPDATE SET classes = EXCLUDED.classes
	`, uuid.UUID(entityID), groupPath, raw)
	if err != nil {
		return fmt.Errorf("set attribute classes: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetCredential(ctx context.Context, entityID id.EntityID, cred models.Credential) error {
	_, err := s.execer().ExecContext(ctx, `
		INSERT INTO credentials (entity_id, credential_id, type_id, state, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_id, credential_id)
		DO UPDATE SET type_id = EXCLUDED.type_id, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
	`, uuid.UUID(entityID), cred.CredentialID, cred.TypeID, cred.State, cred.UpdatedAt)
	if err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, entityID id.EntityID, status models.EntityStatus) error {
	res, err := s.execer().ExecContext(ctx,
		`UPDATE entities SET status = $2 WHERE id = $1`,
		uuid.UUID(entityID), string(status))
	if err != nil {
		return fmt.Errorf("set entity status: %w", err)
	}
	return requireAffected(res, "entity")
}

func (s *PostgresStore) Remove(ctx context.Context, entityID id.EntityID) error {
	res, err := s.execer().ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, uuid.UUID(entityID))
	if err != nil {
		return fmt.Errorf("remove entity: %w", err)
	}
	return requireAffected(res, "entity")
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Entity, error) {
	rows, err := s.execer().QueryContext(ctx, `SELECT id FROM entities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	var ids []id.EntityID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			rows.Close() //nolint:errcheck // scan failure already reported
			return nil, fmt.Errorf("scan entity id: %w", err)
		}
		ids = append(ids, id.EntityID(raw))
	}
	if err := rows.Err(); err != nil {
		rows.Close() //nolint:errcheck // iteration failure already reported
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	rows.Close() //nolint:errcheck // rows fully consumed

	entities := make([]*models.Entity, 0, len(ids))
	for _, entityID := range ids {
		entity, err := s.FindByID(ctx, entityID)
		if err != nil {
			// Removed concurrently; skip.
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found: %w", what, sentinel.ErrNotFound)
	}
	return nil
}
