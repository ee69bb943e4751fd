package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/filebox/internal/audit"
	"github.com/dmitrymomot/filebox/internal/registry"
	"github.com/dmitrymomot/filebox/pkg/job"
	"github.com/dmitrymomot/filebox/pkg/storage"
)

// Deps bundles the collaborators shared by every pipeline task.
type Deps struct {
	Files  registry.Store
	Broker storage.Broker
	Audit  *audit.Recorder
	Logger *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// complete merges a task result into the file and, when the merge shows all
// required tasks done on a still-processing file, promotes it to processed.
// Safe to call from concurrent workers: the merge is commutative and the
// promotion is a compare-and-swap, so exactly one worker wins the transition.
func (d *Deps) complete(ctx context.Context, p Payload, res registry.TaskResult) error {
	f, err := d.Files.ApplyTaskResult(ctx, p.OrganizationID, p.FileID, res)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			// File vanished mid-pipeline. Nothing to settle.
			d.logger().InfoContext(ctx, "task result dropped, file not found",
				slog.String("task", res.Task),
				slog.String("file_id", p.FileID.String()))
			return nil
		}
		return fmt.Errorf("processing: apply %s result: %w", res.Task, err)
	}

	if f.Status != registry.StatusProcessing || !f.TasksDone(RequiredTasks...) {
		return nil
	}

	if _, err := d.Files.Transition(ctx, p.OrganizationID, p.FileID, registry.StatusProcessing, registry.StatusProcessed); err != nil {
		// A sibling worker settled first, or the file was deleted under us.
		// Either way the outcome is already decided.
		if errors.Is(err, registry.ErrStateMismatch) || errors.Is(err, registry.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("processing: settle %s: %w", p.FileID, err)
	}

	d.Audit.Record(ctx, audit.Entry{
		OrganizationID: p.OrganizationID,
		Actor:          p.UploadedBy,
		Action:         audit.ActionProcessingCompleted,
		FileID:         &p.FileID,
		CorrelationID:  p.CorrelationID,
	})
	return nil
}

// fail handles a task error. Before the final attempt it simply returns the
// cause so the queue retries. On the final attempt a required task marks the
// file failed with a reason; a best-effort task only leaves an audit trail.
// Absent attempt metadata (direct invocation) the attempt counts as final.
func (d *Deps) fail(ctx context.Context, p Payload, task string, required bool, cause error) error {
	if a, ok := job.AttemptFromContext(ctx); ok && !a.Final() {
		return cause
	}

	if required {
		if _, err := d.Files.Transition(ctx, p.OrganizationID, p.FileID, registry.StatusProcessing, registry.StatusFailed); err != nil {
			if !errors.Is(err, registry.ErrStateMismatch) && !errors.Is(err, registry.ErrNotFound) {
				d.logger().ErrorContext(ctx, "failed to mark file failed",
					slog.String("file_id", p.FileID.String()),
					slog.Any("error", err))
			}
		} else if err := d.Files.SetFailureReason(ctx, p.FileID, fmt.Sprintf("task %s: %v", task, cause)); err != nil {
			d.logger().WarnContext(ctx, "failed to record failure reason",
				slog.String("file_id", p.FileID.String()),
				slog.Any("error", err))
		}
	}

	d.Audit.Record(ctx, audit.Entry{
		OrganizationID: p.OrganizationID,
		Actor:          p.UploadedBy,
		Action:         audit.ActionProcessingFailed,
		FileID:         &p.FileID,
		CorrelationID:  p.CorrelationID,
		Details: map[string]any{
			"task":     task,
			"required": required,
			"error":    cause.Error(),
		},
	})
	return cause
}
