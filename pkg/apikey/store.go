package apikey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store errors.
var (
	// ErrKeyNotFound is returned when no stored key matches a hash or id.
	ErrKeyNotFound = errors.New("apikey: key not found")

	// ErrDuplicateHash is returned on a hash collision at creation,
	// which in practice means the same secret was inserted twice.
	ErrDuplicateHash = errors.New("apikey: duplicate key hash")
)

// Store persists API keys.
type Store interface {
	// Create persists a new key.
	Create(ctx context.Context, k *Key) error

	// FindByHash returns the key whose stored hash matches.
	// Returns ErrKeyNotFound on no match.
	FindByHash(ctx context.Context, hash string) (*Key, error)

	// TouchLastUsed updates the key's last-used timestamp.
	// Callers treat this as best-effort.
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error

	// Revoke removes a key, scoped by organization.
	// Returns ErrKeyNotFound when absent or cross-tenant.
	Revoke(ctx context.Context, orgID, id uuid.UUID) error

	// ListByOrganization returns the organization's keys, newest first.
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*Key, error)
}
