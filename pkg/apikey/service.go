package apikey

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/filebox/pkg/logger"
)

// Service errors.
var (
	// ErrInvalidCredentials covers malformed, unknown, and expired secrets.
	// Callers are not told which.
	ErrInvalidCredentials = errors.New("apikey: invalid credentials")

	// ErrPermissionDenied means the credential is valid but its permission
	// set does not grant the required capability.
	ErrPermissionDenied = errors.New("apikey: permission denied")

	// ErrInvalidPermission is returned when creating a key with an unknown
	// permission value.
	ErrInvalidPermission = errors.New("apikey: invalid permission")
)

const (
	defaultCacheTTL     = time.Minute
	defaultTouchTimeout = 5 * time.Second
)

// Context is the authorization context established by Authenticate and
// carried for the remainder of the request.
type Context struct {
	OrganizationID uuid.UUID   `json:"organization_id"`
	KeyID          uuid.UUID   `json:"key_id"`
	Permissions    Permissions `json:"permissions"`
	ExpiresAt      *time.Time  `json:"expires_at,omitempty"`
}

// Service authenticates bearer secrets and authorizes capabilities.
type Service struct {
	store        Store
	cache        redis.UniversalClient
	cacheTTL     time.Duration
	touchTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for best-effort side effect failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCache enables a short-lived authentication cache in front of the
// store. Revocations take effect within the TTL.
func WithCache(client redis.UniversalClient, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = client
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a credential service over the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		cacheTTL:     defaultCacheTTL,
		touchTimeout: defaultTouchTimeout,
		logger:       logger.NewNope(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateKey generates a new key for the organization and returns the stored
// record together with the raw secret. The secret is returned exactly once;
// only its hash is persisted.
func (s *Service) CreateKey(ctx context.Context, orgID uuid.UUID, name string, perms Permissions, expiresAt *time.Time) (*Key, string, error) {
	for _, p := range perms {
		if !p.Valid() {
			return nil, "", errors.Join(ErrInvalidPermission, errors.New(string(p)))
		}
	}

	secret, prefix, hash, err := GenerateSecret()
	if err != nil {
		return nil, "", err
	}

	k := &Key{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Prefix:         prefix,
		Hash:           hash,
		Name:           name,
		Permissions:    perms,
		ExpiresAt:      expiresAt,
		CreatedAt:      s.now(),
	}
	if err := s.store.Create(ctx, k); err != nil {
		return nil, "", err
	}
	return k, secret, nil
}

// Authenticate resolves a raw bearer secret into an authorization context.
// The format check runs before any store lookup, and updating the key's
// last-used timestamp is a detached best-effort side effect.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*Context, error) {
	if !WellFormed(rawKey) {
		return nil, ErrInvalidCredentials
	}

	hash := HashSecret(rawKey)

	if authCtx, ok := s.cached(ctx, hash); ok {
		if authCtx.ExpiresAt != nil && authCtx.ExpiresAt.Before(s.now()) {
			return nil, ErrInvalidCredentials
		}
		s.touch(ctx, authCtx.KeyID)
		return authCtx, nil
	}

	k, err := s.store.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if k.Expired(s.now()) {
		return nil, ErrInvalidCredentials
	}

	authCtx := &Context{
		OrganizationID: k.OrganizationID,
		KeyID:          k.ID,
		Permissions:    k.Permissions,
		ExpiresAt:      k.ExpiresAt,
	}
	s.cacheSet(ctx, hash, authCtx)
	s.touch(ctx, k.ID)
	return authCtx, nil
}

// Authorize checks that the context's permission set grants the required
// capability. Admin satisfies every check.
func (s *Service) Authorize(authCtx *Context, required Permission) error {
	if authCtx == nil || !authCtx.Permissions.Allows(required) {
		return ErrPermissionDenied
	}
	return nil
}

// Revoke removes a key so its secret stops authenticating.
// The cache, if any, ages the stale entry out within its TTL.
func (s *Service) Revoke(ctx context.Context, orgID, id uuid.UUID) error {
	return s.store.Revoke(ctx, orgID, id)
}

// ListKeys returns the organization's keys.
func (s *Service) ListKeys(ctx context.Context, orgID uuid.UUID) ([]*Key, error) {
	return s.store.ListByOrganization(ctx, orgID)
}

// touch updates the last-used timestamp in the background. Failure is logged
// and never propagated: losing this write is tolerable, failing an otherwise
// valid authentication is not.
func (s *Service) touch(ctx context.Context, keyID uuid.UUID) {
	detached := context.WithoutCancel(ctx)
	at := s.now()
	go func() {
		ctx, cancel := context.WithTimeout(detached, s.touchTimeout)
		defer cancel()

		if err := s.store.TouchLastUsed(ctx, keyID, at); err != nil {
			s.logger.WarnContext(ctx, "last-used update dropped",
				slog.String("key_id", keyID.String()),
				slog.Any("error", err),
			)
		}
	}()
}

func cacheKey(hash string) string {
	return "apikey:ctx:" + hash
}

func (s *Service) cached(ctx context.Context, hash string) (*Context, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, cacheKey(hash)).Bytes()
	if err != nil {
		return nil, false
	}
	var authCtx Context
	if err := json.Unmarshal(raw, &authCtx); err != nil {
		return nil, false
	}
	return &authCtx, true
}

func (s *Service) cacheSet(ctx context.Context, hash string, authCtx *Context) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(authCtx)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(hash), raw, s.cacheTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "auth cache write dropped", slog.Any("error", err))
	}
}
