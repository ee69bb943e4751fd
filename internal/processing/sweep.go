package processing

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/filebox/internal/registry"
)

// DefaultPendingTTL is how long an upload may sit unconfirmed before the
// sweep fails it. Presigned upload URLs expire well before this.
const DefaultPendingTTL = 24 * time.Hour

// StaleUploadSweep periodically fails pending_upload records whose clients
// never confirmed. Without it an abandoned upload request would stay pending
// forever.
type StaleUploadSweep struct {
	Files  registry.Store
	TTL    time.Duration
	Logger *slog.Logger
}

func (t *StaleUploadSweep) Name() string { return "sweep-stale-uploads" }

// Schedule runs the sweep every ten minutes.
func (t *StaleUploadSweep) Schedule() string { return "*/10 * * * *" }

func (t *StaleUploadSweep) Handle(ctx context.Context) error {
	ttl := t.TTL
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}

	n, err := t.Files.ExpireStalePending(ctx, time.Now().Add(-ttl))
	if err != nil {
		return err
	}
	if n > 0 && t.Logger != nil {
		t.Logger.InfoContext(ctx, "swept stale pending uploads", slog.Int64("count", n))
	}
	return nil
}
