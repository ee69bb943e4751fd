package processing

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/filebox/internal/registry"
)

// processorVersion stamps extracted metadata so reprocessed files can be
// told apart from ones handled by an older pipeline build.
const processorVersion = "filebox-pipeline/1"

// MetadataTask derives technical metadata from the stored object and merges
// it into the file record. Its keys are disjoint from every other task's
// contribution, keeping the merge commutative.
type MetadataTask struct {
	Deps
}

func (t *MetadataTask) Name() string { return TaskMetadata }

func (t *MetadataTask) Handle(ctx context.Context, p Payload) error {
	info, err := t.Broker.Head(ctx, p.Key)
	if err != nil {
		return t.fail(ctx, p, TaskMetadata, true, err)
	}

	meta := map[string]string{
		"size_bytes":        strconv.FormatInt(info.Size, 10),
		"content_type":      p.ContentType,
		"processor_version": processorVersion,
		"processed_at":      time.Now().UTC().Format(time.RFC3339),
	}
	if ext := strings.TrimPrefix(filepath.Ext(p.Key), "."); ext != "" {
		meta["extension"] = ext
	}

	return t.complete(ctx, p, registry.TaskResult{
		Task:     TaskMetadata,
		Metadata: meta,
	})
}
