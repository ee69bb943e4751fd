package registry

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
// Conditional updates are expressed as "UPDATE ... WHERE status = $expected",
// so the compare-and-swap happens inside the database and holds across
// concurrent service instances.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a registry store backed by PostgreSQL.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const fileColumns = `id, organization_id, bucket, storage_key, original_name,
	content_type, size_bytes, checksum, status, tags, metadata, is_valid,
	thumbnail_key, completed_tasks, failure_reason, uploaded_by, created_at, updated_at`

func scanFile(row pgx.Row) (*File, error) {
	var f File
	var status string
	err := row.Scan(
		&f.ID, &f.OrganizationID, &f.Bucket, &f.StorageKey, &f.OriginalName,
		&f.ContentType, &f.SizeBytes, &f.Checksum, &status, &f.Tags,
		&f.Metadata, &f.Valid, &f.ThumbnailKey, &f.CompletedTasks,
		&f.FailureReason, &f.UploadedBy, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Status = Status(status)
	return &f, nil
}

// Create persists a new file record.
func (s *PostgresStore) Create(ctx context.Context, f *File) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO files (id, organization_id, bucket, storage_key,
			original_name, content_type, size_bytes, status, tags, metadata,
			completed_tasks, uploaded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		f.ID, f.OrganizationID, f.Bucket, f.StorageKey,
		f.OriginalName, f.ContentType, f.SizeBytes, string(f.Status),
		f.Tags, f.Metadata, f.CompletedTasks, f.UploadedBy, f.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errors.Join(ErrDuplicateID, err)
		}
		return fmt.Errorf("registry: create file: %w", err)
	}
	return nil
}

// Get returns a non-deleted file scoped by organization.
func (s *PostgresStore) Get(ctx context.Context, orgID, fileID uuid.UUID) (*File, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+fileColumns+`
		FROM files
		WHERE id = $1 AND organization_id = $2 AND status <> $3`,
		fileID, orgID, string(StatusDeleted),
	)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("registry: get file: %w", err)
	}
	return f, nil
}

// List returns the organization's non-deleted files, newest first.
func (s *PostgresStore) List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]*File, error) {
	query := `SELECT ` + fileColumns + `
		FROM files
		WHERE organization_id = $1 AND status <> $2`
	args := []any{orgID, string(StatusDeleted)}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		query += fmt.Sprintf(" AND $%d = ANY(tags)", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("registry: list files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("registry: scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry: list files: %w", err)
	}
	return files, nil
}

// Transition performs the conditional status update. Exactly one of two
// racing callers sees the expected pre-state; the other gets *StateError.
func (s *PostgresStore) Transition(ctx context.Context, orgID, fileID uuid.UUID, from, to Status) (*File, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE files
		SET status = $1, updated_at = now()
		WHERE id = $2 AND organization_id = $3 AND status = $4
		RETURNING `+fileColumns,
		string(to), fileID, orgID, string(from),
	)
	f, err := scanFile(row)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("registry: transition file: %w", err)
	}

	// CAS failed: distinguish "wrong state" from "not found" for the caller.
	var current string
	err = s.pool.QueryRow(ctx,
		`SELECT status FROM files WHERE id = $1 AND organization_id = $2 AND status <> $3`,
		fileID, orgID, string(StatusDeleted),
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("registry: transition file: %w", err)
	}
	return nil, &StateError{Current: Status(current)}
}

// SoftDelete marks the file deleted. Already-deleted files report ErrNotFound
// because deleted files are invisible everywhere.
func (s *PostgresStore) SoftDelete(ctx context.Context, orgID, fileID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE files
		SET status = $1, updated_at = now()
		WHERE id = $2 AND organization_id = $3 AND status <> $1`,
		string(StatusDeleted), fileID, orgID,
	)
	if err != nil {
		return fmt.Errorf("registry: delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyTaskResult merges a task contribution in a single UPDATE so concurrent
// completions interleave safely: COALESCE keeps stored values where the
// contribution is nil, the metadata jsonb merge unions keys, and the task
// name is added to completed_tasks exactly once.
func (s *PostgresStore) ApplyTaskResult(ctx context.Context, orgID, fileID uuid.UUID, res TaskResult) (*File, error) {
	meta := res.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE files
		SET checksum       = COALESCE($3, checksum),
		    is_valid       = COALESCE($4, is_valid),
		    thumbnail_key  = COALESCE($5, thumbnail_key),
		    metadata       = metadata || $6,
		    completed_tasks = CASE
		        WHEN $7 = '' OR $7 = ANY(completed_tasks) THEN completed_tasks
		        ELSE array_append(completed_tasks, $7)
		    END,
		    updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+fileColumns,
		fileID, orgID, res.Checksum, res.Valid, res.ThumbnailKey, meta, res.Task,
	)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("registry: apply task result: %w", err)
	}
	return f, nil
}

// SetFailureReason records why a file failed.
func (s *PostgresStore) SetFailureReason(ctx context.Context, fileID uuid.UUID, reason string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE files SET failure_reason = $1, updated_at = now() WHERE id = $2`,
		reason, fileID,
	)
	if err != nil {
		return fmt.Errorf("registry: set failure reason: %w", err)
	}
	return nil
}

// ExpireStalePending sweeps abandoned pending uploads into the failed state.
func (s *PostgresStore) ExpireStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE files
		SET status = $1, failure_reason = 'upload was never confirmed', updated_at = now()
		WHERE status = $2 AND created_at < $3`,
		string(StatusFailed), string(StatusPendingUpload), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("registry: expire stale pending: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
