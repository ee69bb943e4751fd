package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates an audit store backed by PostgreSQL.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, e *Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (id, file_id, organization_id, action, actor,
			correlation_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.FileID, e.OrganizationID, string(e.Action), e.Actor,
		nullable(e.CorrelationID), e.Details, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: append entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByFile(ctx context.Context, orgID, fileID uuid.UUID, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, file_id, organization_id, action, actor, correlation_id, details, created_at
		FROM audit_log
		WHERE organization_id = $1 AND file_id = $2
		ORDER BY created_at ASC
		LIMIT $3`,
		orgID, fileID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: list by file: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var action string
		var correlationID *string
		if err := rows.Scan(&e.ID, &e.FileID, &e.OrganizationID, &action,
			&e.Actor, &correlationID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		e.Action = Action(action)
		if correlationID != nil {
			e.CorrelationID = *correlationID
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: list by file: %w", err)
	}
	return entries, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
