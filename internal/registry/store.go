package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store errors.
var (
	// ErrNotFound is returned when a file does not exist inside the caller's
	// organization. Soft-deleted and cross-tenant files are indistinguishable
	// from absent ones to prevent tenant-existence probing.
	ErrNotFound = errors.New("registry: file not found")

	// ErrStateMismatch is returned by Transition when the persisted status no
	// longer matches the expected pre-state. The loser of a transition race
	// observes this error.
	ErrStateMismatch = errors.New("registry: file not in expected state")

	// ErrDuplicateID is returned when creating a file with an ID that
	// already exists.
	ErrDuplicateID = errors.New("registry: duplicate file id")
)

// StateError wraps ErrStateMismatch and carries the status that was actually
// observed, so callers can report a meaningful error.
type StateError struct {
	Current Status
}

func (e *StateError) Error() string {
	return "registry: file not in expected state, current status is " + string(e.Current)
}

func (e *StateError) Unwrap() error { return ErrStateMismatch }

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	Status Status
	Tag    string
	Limit  int
	Offset int
}

// Store persists file records. Implementations must provide atomic
// conditional updates: Transition and ApplyTaskResult are the only write
// paths besides Create and SoftDelete, and none of them may be implemented
// as a blind read-modify-write of the whole record.
type Store interface {
	// Create persists a new file record.
	Create(ctx context.Context, f *File) error

	// Get returns a file scoped by organization.
	// Returns ErrNotFound for absent, cross-tenant, and soft-deleted files.
	Get(ctx context.Context, orgID, fileID uuid.UUID) (*File, error)

	// List returns the organization's files, newest first,
	// excluding soft-deleted ones.
	List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]*File, error)

	// Transition atomically moves a file from one status to another.
	// The update succeeds only if the persisted status still equals from;
	// otherwise a *StateError wrapping ErrStateMismatch is returned and
	// nothing changes. Returns the post-transition record on success.
	Transition(ctx context.Context, orgID, fileID uuid.UUID, from, to Status) (*File, error)

	// SoftDelete marks a file deleted from any non-deleted state.
	// Returns ErrNotFound when the file is absent, cross-tenant,
	// or already deleted.
	SoftDelete(ctx context.Context, orgID, fileID uuid.UUID) error

	// ApplyTaskResult merges a pipeline task contribution into the record:
	// nil fields keep stored values, metadata keys are unioned, and the task
	// name is added to CompletedTasks. The merge is commutative and
	// idempotent, and lands regardless of status; a record deleted
	// mid-processing accepts the merge but stays invisible to reads.
	// Returns the merged record.
	ApplyTaskResult(ctx context.Context, orgID, fileID uuid.UUID, res TaskResult) (*File, error)

	// SetFailureReason records why a file failed. Best-effort companion to
	// a Transition into StatusFailed.
	SetFailureReason(ctx context.Context, fileID uuid.UUID, reason string) error

	// ExpireStalePending fails pending_upload records created before the
	// cutoff, returning how many were swept. Uploads abandoned before
	// confirmation never leave pending_upload on their own.
	ExpireStalePending(ctx context.Context, cutoff time.Time) (int64, error)
}
