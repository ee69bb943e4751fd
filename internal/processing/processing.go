// Package processing implements the post-upload pipeline: a fan-out of
// idempotent per-file tasks (validate, generate-checksum, extract-metadata,
// and generate-thumbnail for images) that feed results back into the file
// registry as commutative field-level merges. The file reaches its processed
// state once every required task has succeeded at least once, in any order.
package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/filebox/pkg/job"
	"github.com/dmitrymomot/filebox/pkg/storage"
)

// Pipeline task names. These double as the queue task names and the
// completed-task markers in the registry.
const (
	TaskValidate  = "validate"
	TaskChecksum  = "generate-checksum"
	TaskMetadata  = "extract-metadata"
	TaskThumbnail = "generate-thumbnail"
)

// RequiredTasks must all succeed before a file becomes processed.
// Thumbnail generation is best-effort and never gates completion.
var RequiredTasks = []string{TaskValidate, TaskChecksum, TaskMetadata}

// QueueMedia is the dedicated queue for thumbnail rendering, so image
// decoding cannot starve the required tasks of workers.
const QueueMedia = "media"

// maxAttempts is the per-task retry ceiling. The queue backs off
// exponentially between attempts.
const maxAttempts = 3

// enqueueUniqueWindow deduplicates fan-out retries: re-running a confirm
// that already enqueued its tasks must not double-enqueue them.
const enqueueUniqueWindow = time.Hour

// Payload is the input contract shared by all pipeline tasks. It carries
// everything a worker needs so tasks never depend on registry reads to start.
type Payload struct {
	FileID         uuid.UUID `json:"file_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Bucket         string    `json:"bucket"`
	Key            string    `json:"key"`
	ContentType    string    `json:"content_type"`
	SizeBytes      int64     `json:"size_bytes"`

	// UploadedBy is recorded as the audit actor for pipeline outcomes.
	UploadedBy uuid.UUID `json:"uploaded_by"`

	CorrelationID string `json:"correlation_id,omitempty"`
}

// Enqueuer dispatches named tasks to the queue. Satisfied by *job.Manager
// and *job.Enqueuer.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error
}

// TaskNames returns the pipeline tasks to run for a file: the required set,
// plus thumbnail generation when the content type is an image.
func TaskNames(contentType string) []string {
	names := append([]string(nil), RequiredTasks...)
	if storage.IsImage(contentType) {
		names = append(names, TaskThumbnail)
	}
	return names
}

// Fanout enqueues the pipeline tasks for one file. Each task is an
// independent job with its own retry budget. Returns on the first enqueue
// failure so the caller can surface a retryable error; the uniqueness window
// makes a repeated fan-out safe.
func Fanout(ctx context.Context, q Enqueuer, p Payload) error {
	for _, name := range TaskNames(p.ContentType) {
		opts := []job.EnqueueOption{
			job.MaxAttempts(maxAttempts),
			job.UniqueKey(p.FileID.String() + ":" + name),
			job.UniqueFor(enqueueUniqueWindow),
		}
		if name == TaskThumbnail {
			opts = append(opts, job.InQueue(QueueMedia))
		}
		if err := q.Enqueue(ctx, name, p, opts...); err != nil {
			return fmt.Errorf("processing: enqueue %s: %w", name, err)
		}
	}
	return nil
}
