package tenant

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu   sync.Mutex
	orgs map[uuid.UUID]*Organization
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orgs: make(map[uuid.UUID]*Organization)}
}

func (s *MemoryStore) Create(_ context.Context, org *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.orgs {
		if existing.Name == org.Name {
			return ErrDuplicateName
		}
	}
	cp := *org
	s.orgs[org.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		cp := *org
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

var _ Store = (*MemoryStore)(nil)
