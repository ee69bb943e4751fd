package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists organizations in the organizations table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, org *Organization) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, created_at)
		VALUES ($1, $2, $3)`,
		org.ID, org.Name, org.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateName
		}
		return fmt.Errorf("tenant: insert organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM organizations WHERE id = $1`, id)

	var org Organization
	if err := row.Scan(&org.ID, &org.Name, &org.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tenant: get organization: %w", err)
	}
	return &org, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Organization, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, created_at
		FROM organizations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("tenant: list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("tenant: scan organization: %w", err)
		}
		orgs = append(orgs, &org)
	}
	return orgs, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
