package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *e
	s.entries = append(s.entries, &clone)
	return nil
}

func (s *MemoryStore) ListByFile(_ context.Context, orgID, fileID uuid.UUID, limit int) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	var out []*Entry
	for _, e := range s.entries {
		if e.OrganizationID != orgID || e.FileID == nil || *e.FileID != fileID {
			continue
		}
		clone := *e
		out = append(out, &clone)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns every recorded entry. Test helper.
func (s *MemoryStore) All() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
