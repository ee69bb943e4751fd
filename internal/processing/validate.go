package processing

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/filebox/internal/registry"
	"github.com/dmitrymomot/filebox/pkg/storage"
)

// ValidateTask confirms the uploaded object actually exists and matches the
// size the client declared at upload request time.
type ValidateTask struct {
	Deps
}

func (t *ValidateTask) Name() string { return TaskValidate }

// Handle checks the stored object against the declared upload. A missing
// object is treated as transient (a just-completed upload may still be
// propagating) and retried; a size mismatch is a definitive negative verdict
// recorded before the task fails.
func (t *ValidateTask) Handle(ctx context.Context, p Payload) error {
	info, err := t.Broker.Head(ctx, p.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return t.fail(ctx, p, TaskValidate, true, fmt.Errorf("object %s not found in bucket", p.Key))
		}
		return t.fail(ctx, p, TaskValidate, true, err)
	}

	if info.Size != p.SizeBytes {
		invalid := false
		if _, err := t.Files.ApplyTaskResult(ctx, p.OrganizationID, p.FileID, registry.TaskResult{Valid: &invalid}); err != nil && !errors.Is(err, registry.ErrNotFound) {
			t.logger().WarnContext(ctx, "failed to record validity verdict", "file_id", p.FileID, "error", err)
		}
		return t.fail(ctx, p, TaskValidate, true,
			fmt.Errorf("size mismatch: declared %d bytes, stored %d bytes", p.SizeBytes, info.Size))
	}

	valid := true
	return t.complete(ctx, p, registry.TaskResult{
		Task:  TaskValidate,
		Valid: &valid,
	})
}
