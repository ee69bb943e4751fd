// Package tenant manages organizations, the isolation boundary every file,
// key, and audit entry hangs off. Creating an organization also issues its
// first admin API key, since nothing else can mint keys for a tenant that
// has none.
package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for unknown organization IDs.
	ErrNotFound = errors.New("organization not found")

	// ErrDuplicateName is returned when the organization name is taken.
	ErrDuplicateName = errors.New("organization name already exists")

	// ErrInvalidName is returned for empty or oversized names.
	ErrInvalidName = errors.New("invalid organization name")
)

const maxNameLen = 120

// Organization is a tenant. All resource access is scoped to exactly one.
type Organization struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Store persists organizations.
type Store interface {
	Create(ctx context.Context, org *Organization) error
	Get(ctx context.Context, id uuid.UUID) (*Organization, error)
	List(ctx context.Context, limit, offset int) ([]*Organization, error)
}
