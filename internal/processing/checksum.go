package processing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/dmitrymomot/filebox/internal/registry"
)

// ChecksumTask streams the stored object through SHA-256 and records the
// hex digest on the file.
type ChecksumTask struct {
	Deps
}

func (t *ChecksumTask) Name() string { return TaskChecksum }

func (t *ChecksumTask) Handle(ctx context.Context, p Payload) error {
	body, err := t.Broker.Get(ctx, p.Key)
	if err != nil {
		return t.fail(ctx, p, TaskChecksum, true, err)
	}
	defer body.Close()

	h := sha256.New()
	if _, err := io.Copy(h, body); err != nil {
		return t.fail(ctx, p, TaskChecksum, true, fmt.Errorf("read object %s: %w", p.Key, err))
	}

	sum := hex.EncodeToString(h.Sum(nil))
	return t.complete(ctx, p, registry.TaskResult{
		Task:     TaskChecksum,
		Checksum: &sum,
	})
}
