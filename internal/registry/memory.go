package registry

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
// All operations are atomic under a single mutex, which preserves the
// compare-and-swap semantics of the PostgreSQL implementation.
type MemoryStore struct {
	mu    sync.Mutex
	files map[uuid.UUID]*File
}

// NewMemoryStore creates an empty in-memory registry store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[uuid.UUID]*File)}
}

func (s *MemoryStore) Create(_ context.Context, f *File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[f.ID]; ok {
		return ErrDuplicateID
	}
	s.files[f.ID] = f.Clone()
	return nil
}

// visible returns the stored record if it exists in the given organization
// and is not soft-deleted. Callers must hold the mutex.
func (s *MemoryStore) visible(orgID, fileID uuid.UUID) (*File, bool) {
	f, ok := s.files[fileID]
	if !ok || f.OrganizationID != orgID || f.Status == StatusDeleted {
		return nil, false
	}
	return f, true
}

func (s *MemoryStore) Get(_ context.Context, orgID, fileID uuid.UUID) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.visible(orgID, fileID)
	if !ok {
		return nil, ErrNotFound
	}
	return f.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, orgID uuid.UUID, filter ListFilter) ([]*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var files []*File
	for _, f := range s.files {
		if f.OrganizationID != orgID || f.Status == StatusDeleted {
			continue
		}
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		if filter.Tag != "" && !slices.Contains(f.Tags, filter.Tag) {
			continue
		}
		files = append(files, f.Clone())
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(files) {
			return nil, nil
		}
		files = files[filter.Offset:]
	}
	if filter.Limit > 0 && len(files) > filter.Limit {
		files = files[:filter.Limit]
	}
	return files, nil
}

func (s *MemoryStore) Transition(_ context.Context, orgID, fileID uuid.UUID, from, to Status) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.visible(orgID, fileID)
	if !ok {
		return nil, ErrNotFound
	}
	if f.Status != from {
		return nil, &StateError{Current: f.Status}
	}
	f.Status = to
	f.UpdatedAt = time.Now()
	return f.Clone(), nil
}

func (s *MemoryStore) SoftDelete(_ context.Context, orgID, fileID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.visible(orgID, fileID)
	if !ok {
		return ErrNotFound
	}
	f.Status = StatusDeleted
	f.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ApplyTaskResult(_ context.Context, orgID, fileID uuid.UUID, res TaskResult) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Merges land on deleted rows too; visibility stays gated by status.
	f, ok := s.files[fileID]
	if !ok || f.OrganizationID != orgID {
		return nil, ErrNotFound
	}

	if res.Checksum != nil {
		v := *res.Checksum
		f.Checksum = &v
	}
	if res.Valid != nil {
		v := *res.Valid
		f.Valid = &v
	}
	if res.ThumbnailKey != nil {
		v := *res.ThumbnailKey
		f.ThumbnailKey = &v
	}
	if len(res.Metadata) > 0 {
		if f.Metadata == nil {
			f.Metadata = make(map[string]string, len(res.Metadata))
		}
		for k, v := range res.Metadata {
			f.Metadata[k] = v
		}
	}
	if res.Task != "" && !slices.Contains(f.CompletedTasks, res.Task) {
		f.CompletedTasks = append(f.CompletedTasks, res.Task)
	}
	f.UpdatedAt = time.Now()
	return f.Clone(), nil
}

func (s *MemoryStore) SetFailureReason(_ context.Context, fileID uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.files[fileID]; ok {
		f.FailureReason = &reason
		f.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemoryStore) ExpireStalePending(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reason := "upload was never confirmed"
	var swept int64
	for _, f := range s.files {
		if f.Status == StatusPendingUpload && f.CreatedAt.Before(cutoff) {
			f.Status = StatusFailed
			f.FailureReason = &reason
			f.UpdatedAt = time.Now()
			swept++
		}
	}
	return swept, nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
