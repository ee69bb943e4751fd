package apikey

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[uuid.UUID]*Key
}

// NewMemoryStore creates an empty in-memory key store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[uuid.UUID]*Key)}
}

func cloneKey(k *Key) *Key {
	c := *k
	c.Permissions = slices.Clone(k.Permissions)
	if k.ExpiresAt != nil {
		v := *k.ExpiresAt
		c.ExpiresAt = &v
	}
	if k.LastUsedAt != nil {
		v := *k.LastUsedAt
		c.LastUsedAt = &v
	}
	return &c
}

func (s *MemoryStore) Create(_ context.Context, k *Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.keys {
		if existing.Hash == k.Hash {
			return ErrDuplicateHash
		}
	}
	s.keys[k.ID] = cloneKey(k)
	return nil
}

func (s *MemoryStore) FindByHash(_ context.Context, hash string) (*Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range s.keys {
		if k.Hash == hash {
			return cloneKey(k), nil
		}
	}
	return nil, ErrKeyNotFound
}

func (s *MemoryStore) TouchLastUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.keys[id]; ok {
		k.LastUsedAt = &at
	}
	return nil
}

func (s *MemoryStore) Revoke(_ context.Context, orgID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[id]
	if !ok || k.OrganizationID != orgID {
		return ErrKeyNotFound
	}
	delete(s.keys, id)
	return nil
}

func (s *MemoryStore) ListByOrganization(_ context.Context, orgID uuid.UUID) ([]*Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Key
	for _, k := range s.keys {
		if k.OrganizationID == orgID {
			out = append(out, cloneKey(k))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
