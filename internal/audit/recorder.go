package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/filebox/pkg/logger"
)

const defaultWriteTimeout = 5 * time.Second

// Recorder writes audit entries as a best-effort side effect: Record returns
// immediately, the append runs in the background, and failures are logged
// and swallowed. Audit is not a correctness dependency.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the logger used to report dropped entries.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithWriteTimeout bounds each background append. Default 5s.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRecorder creates a fire-and-forget recorder over the given store.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		logger:  logger.NewNope(),
		timeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an entry asynchronously. The entry's ID and CreatedAt are
// filled in if zero. The background write detaches from the caller's
// cancellation so an already-answered request cannot cancel its audit trail.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	detached := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(detached, r.timeout)
		defer cancel()

		if err := r.store.Append(ctx, &e); err != nil {
			r.logger.ErrorContext(ctx, "audit entry dropped",
				slog.String("action", string(e.Action)),
				slog.String("organization_id", e.OrganizationID.String()),
				slog.Any("error", err),
			)
		}
	}()
}

// Close waits for in-flight appends to finish, bounded by ctx.
func (r *Recorder) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
