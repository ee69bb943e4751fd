package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/filebox/internal/audit"
	"github.com/dmitrymomot/filebox/pkg/apikey"
)

// bootstrapKeyName labels the admin key issued at organization creation.
const bootstrapKeyName = "bootstrap-admin"

// Service creates and looks up organizations. Creation also mints the
// tenant's first admin key, returned exactly once alongside the record.
type Service struct {
	orgs   Store
	keys   *apikey.Service
	audit  *audit.Recorder
	logger *slog.Logger
}

// NewService wires a tenant service. All arguments are required.
func NewService(orgs Store, keys *apikey.Service, rec *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{orgs: orgs, keys: keys, audit: rec, logger: logger}
}

// CreateOrganization provisions a tenant and its bootstrap admin key.
// The returned secret is shown once and never recoverable afterwards.
func (s *Service) CreateOrganization(ctx context.Context, name string) (*Organization, *apikey.Key, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLen {
		return nil, nil, "", ErrInvalidName
	}

	org := &Organization{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, nil, "", fmt.Errorf("tenant: create organization: %w", err)
	}

	key, secret, err := s.keys.CreateKey(ctx, org.ID, bootstrapKeyName, apikey.Permissions{apikey.PermissionAdmin}, nil)
	if err != nil {
		// The organization exists but is unreachable without a key.
		// Surface the error so the caller retries key creation.
		return nil, nil, "", fmt.Errorf("tenant: issue bootstrap key for %s: %w", org.ID, err)
	}

	s.audit.Record(ctx, audit.Entry{
		OrganizationID: org.ID,
		Action:         audit.ActionOrgCreated,
		Actor:          key.ID,
		Details:        map[string]any{"name": name},
	})
	s.logger.InfoContext(ctx, "organization created",
		slog.String("organization_id", org.ID.String()),
		slog.String("name", name))

	return org, key, secret, nil
}

// Get returns one organization by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.orgs.Get(ctx, id)
}

// List pages through organizations, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Organization, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.orgs.List(ctx, limit, offset)
}
