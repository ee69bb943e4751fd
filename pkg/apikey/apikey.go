// Package apikey implements hashed API-key authentication and capability
// authorization for multi-tenant callers. A key's raw secret exists only at
// creation time; only its one-way hash is ever stored, so a lost key can be
// revoked and replaced but never retrieved.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Permission is a capability granted to an API key.
type Permission string

const (
	PermissionUpload Permission = "upload"
	PermissionRead   Permission = "read"
	PermissionDelete Permission = "delete"

	// PermissionAdmin implicitly satisfies every other permission check.
	PermissionAdmin Permission = "admin"
)

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	switch p {
	case PermissionUpload, PermissionRead, PermissionDelete, PermissionAdmin:
		return true
	}
	return false
}

// Permissions is the capability set of a key.
type Permissions []Permission

// Allows reports whether the set grants the required permission,
// either directly or through admin.
func (ps Permissions) Allows(required Permission) bool {
	return slices.Contains(ps, required) || slices.Contains(ps, PermissionAdmin)
}

// Strings returns the set as plain strings for persistence.
func (ps Permissions) Strings() []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

// PermissionsFromStrings converts persisted strings back to a permission set.
func PermissionsFromStrings(ss []string) Permissions {
	out := make(Permissions, len(ss))
	for i, s := range ss {
		out[i] = Permission(s)
	}
	return out
}

// Secret format: scheme + 64 hex characters of crypto/rand entropy.
const (
	secretScheme = "fbx_"
	secretBytes  = 32
	secretLen    = len(secretScheme) + secretBytes*2

	// prefixLen is how much of the secret is kept as a public display
	// prefix. Enough to tell keys apart, useless for guessing the rest.
	prefixLen = len(secretScheme) + 8
)

// Key is a stored API key. Hash is the SHA-256 of the raw secret;
// the raw secret itself is never persisted.
type Key struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Prefix         string
	Hash           string
	Name           string
	Permissions    Permissions
	ExpiresAt      *time.Time
	LastUsedAt     *time.Time
	CreatedAt      time.Time
}

// Expired reports whether the key's expiry is in the past.
func (k *Key) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// GenerateSecret produces a new raw secret, its display prefix, and the hash
// to persist. The raw secret must be handed to the caller exactly once and
// then forgotten.
func GenerateSecret() (secret, prefix, hash string, err error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("apikey: generate secret: %w", err)
	}
	secret = secretScheme + hex.EncodeToString(buf)
	return secret, secret[:prefixLen], HashSecret(secret), nil
}

// HashSecret returns the hex-encoded SHA-256 of a raw secret.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// WellFormed is the cheap format check applied before any store lookup,
// short-circuiting obviously invalid input.
func WellFormed(raw string) bool {
	return len(raw) == secretLen && strings.HasPrefix(raw, secretScheme)
}
