package apikey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates an API key store backed by PostgreSQL.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const keyColumns = `id, organization_id, key_prefix, key_hash, name,
	permissions, expires_at, last_used_at, created_at`

func scanKey(row pgx.Row) (*Key, error) {
	var k Key
	var perms []string
	err := row.Scan(&k.ID, &k.OrganizationID, &k.Prefix, &k.Hash, &k.Name,
		&perms, &k.ExpiresAt, &k.LastUsedAt, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	k.Permissions = PermissionsFromStrings(perms)
	return &k, nil
}

func (s *PostgresStore) Create(ctx context.Context, k *Key) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (id, organization_id, key_prefix, key_hash, name,
			permissions, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		k.ID, k.OrganizationID, k.Prefix, k.Hash, k.Name,
		k.Permissions.Strings(), k.ExpiresAt, k.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errors.Join(ErrDuplicateHash, err)
		}
		return fmt.Errorf("apikey: create key: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByHash(ctx context.Context, hash string) (*Key, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+keyColumns+` FROM api_keys WHERE key_hash = $1`, hash)
	k, err := scanKey(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("apikey: find by hash: %w", err)
	}
	return k, nil
}

func (s *PostgresStore) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("apikey: touch last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) Revoke(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM api_keys WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("apikey: revoke key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (s *PostgresStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*Key, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+keyColumns+` FROM api_keys
		WHERE organization_id = $1
		ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("apikey: list keys: %w", err)
	}
	defer rows.Close()

	var keys []*Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("apikey: scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("apikey: list keys: %w", err)
	}
	return keys, nil
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
