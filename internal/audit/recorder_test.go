package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/filebox/internal/audit"
)

// failingStore always rejects appends.
type failingStore struct {
	mu    sync.Mutex
	calls int
}

func (s *failingStore) Append(context.Context, *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return errors.New("boom")
}

func (s *failingStore) ListByFile(context.Context, uuid.UUID, uuid.UUID, int) ([]*audit.Entry, error) {
	return nil, nil
}

func TestRecorder_Record(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := audit.NewMemoryStore()
	rec := audit.NewRecorder(store)

	fileID := uuid.New()
	orgID := uuid.New()
	rec.Record(ctx, audit.Entry{
		FileID:         &fileID,
		OrganizationID: orgID,
		Action:         audit.ActionUploadConfirmed,
		Actor:          uuid.New(),
	})
	require.NoError(t, rec.Close(ctx))

	entries, err := store.ListByFile(ctx, orgID, fileID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionUploadConfirmed, entries[0].Action)
	assert.NotEqual(t, uuid.Nil, entries[0].ID, "ID is filled in when zero")
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestRecorder_SwallowsStoreFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &failingStore{}
	rec := audit.NewRecorder(store)

	// Must not panic or surface the error anywhere.
	rec.Record(ctx, audit.Entry{
		OrganizationID: uuid.New(),
		Action:         audit.ActionFileDeleted,
		Actor:          uuid.New(),
	})
	require.NoError(t, rec.Close(ctx))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.calls)
}

func TestRecorder_DetachesFromCallerCancellation(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStore()
	rec := audit.NewRecorder(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // caller is already gone

	fileID := uuid.New()
	orgID := uuid.New()
	rec.Record(ctx, audit.Entry{
		FileID:         &fileID,
		OrganizationID: orgID,
		Action:         audit.ActionUploadRequested,
		Actor:          uuid.New(),
	})

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
	defer closeCancel()
	require.NoError(t, rec.Close(closeCtx))

	entries, err := store.ListByFile(context.Background(), orgID, fileID, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "entry written despite cancelled caller context")
}
