// Package registry is the single source of truth for file records and their
// lifecycle state. All mutations go through conditional transitions or
// field-level merges so the registry stays consistent under concurrent API
// instances and pipeline workers.
package registry

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a file.
type Status string

const (
	// StatusPendingUpload means the record exists but no bytes are confirmed
	// in the blob store yet.
	StatusPendingUpload Status = "pending_upload"

	// StatusUploaded means the caller confirmed the direct upload.
	StatusUploaded Status = "uploaded"

	// StatusProcessing means pipeline tasks have been enqueued.
	StatusProcessing Status = "processing"

	// StatusProcessed means all required pipeline tasks succeeded.
	StatusProcessed Status = "processed"

	// StatusFailed means a required pipeline task exhausted its retries,
	// or the upload was never confirmed.
	StatusFailed Status = "failed"

	// StatusDeleted is the soft-delete state. The row and its audit trail
	// are retained but the file is invisible to all reads.
	StatusDeleted Status = "deleted"
)

// Downloadable reports whether bytes are known to exist in the blob store,
// which is the precondition for issuing a download URL.
func (s Status) Downloadable() bool {
	return s == StatusUploaded || s == StatusProcessed
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingUpload, StatusUploaded, StatusProcessing,
		StatusProcessed, StatusFailed, StatusDeleted:
		return true
	}
	return false
}

// File is a registered file owned by exactly one organization.
// OrganizationID scopes every query; cross-tenant access is a correctness
// violation, not a policy preference.
type File struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID

	// Bucket and StorageKey locate the object in the external blob store.
	Bucket     string
	StorageKey string

	OriginalName string
	ContentType  string
	SizeBytes    int64

	// Checksum is nil until the generate-checksum task reports it.
	Checksum *string

	Status Status
	Tags   []string

	// Metadata is tenant-supplied at creation and augmented by pipeline
	// tasks with field-level merges.
	Metadata map[string]string

	// Valid is nil until the validate task reports, then holds its verdict.
	Valid *bool

	// ThumbnailKey is set by the generate-thumbnail task for image files.
	ThumbnailKey *string

	// CompletedTasks records which pipeline tasks have succeeded at least
	// once. Merges are set-union, so task completions commute.
	CompletedTasks []string

	// FailureReason explains a failed status, when known.
	FailureReason *string

	// UploadedBy is the API key that requested the upload.
	UploadedBy uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskDone reports whether the named pipeline task has succeeded for this file.
func (f *File) TaskDone(name string) bool {
	return slices.Contains(f.CompletedTasks, name)
}

// TasksDone reports whether every named task has succeeded for this file.
func (f *File) TasksDone(names ...string) bool {
	for _, n := range names {
		if !f.TaskDone(n) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the file record.
func (f *File) Clone() *File {
	c := *f
	c.Tags = slices.Clone(f.Tags)
	c.CompletedTasks = slices.Clone(f.CompletedTasks)
	if f.Metadata != nil {
		c.Metadata = make(map[string]string, len(f.Metadata))
		for k, v := range f.Metadata {
			c.Metadata[k] = v
		}
	}
	if f.Checksum != nil {
		v := *f.Checksum
		c.Checksum = &v
	}
	if f.Valid != nil {
		v := *f.Valid
		c.Valid = &v
	}
	if f.ThumbnailKey != nil {
		v := *f.ThumbnailKey
		c.ThumbnailKey = &v
	}
	if f.FailureReason != nil {
		v := *f.FailureReason
		c.FailureReason = &v
	}
	return &c
}

// TaskResult is the contribution of a single pipeline task, merged into the
// file record field by field. Nil fields leave the stored value untouched,
// so concurrent task completions never clobber each other.
type TaskResult struct {
	// Task is the pipeline task name, appended to CompletedTasks.
	Task string

	Checksum     *string
	Valid        *bool
	ThumbnailKey *string

	// Metadata keys are merged into the stored metadata map.
	// Tasks write disjoint key sets so the merge commutes.
	Metadata map[string]string
}
