package job

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

// Enqueuer dispatches jobs without working them. Use it directly in
// processes that only produce work for separate worker deployments.
type Enqueuer struct {
	pool   *pgxpool.Pool
	client *river.Client[pgx.Tx]
	logger *slog.Logger
}

type enqueuerConfig struct {
	logger *slog.Logger
}

// EnqueuerOption configures the enqueuer.
type EnqueuerOption func(*enqueuerConfig)

// WithEnqueuerLogger sets the logger for the enqueuer.
func WithEnqueuerLogger(l *slog.Logger) EnqueuerOption {
	return func(c *enqueuerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewEnqueuer creates an insert-only River client with no workers attached.
func NewEnqueuer(pool *pgxpool.Pool, opts ...EnqueuerOption) (*Enqueuer, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := &enqueuerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Logger: cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("job: create enqueuer client: %w", err)
	}

	return &Enqueuer{pool: pool, client: client, logger: cfg.logger}, nil
}

// Enqueue dispatches a job for processing by a worker that has the named
// task registered. Task name validation happens on the worker side.
func (e *Enqueuer) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error {
	args, insertOpts, err := buildJobArgs(name, payload, opts...)
	if err != nil {
		return err
	}
	if _, err := e.client.Insert(ctx, args, insertOpts); err != nil {
		return fmt.Errorf("job: enqueue: %w", err)
	}
	return nil
}

// EnqueueTx dispatches a job within a transaction; the job only becomes
// visible once the transaction commits.
func (e *Enqueuer) EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...EnqueueOption) error {
	args, insertOpts, err := buildJobArgs(name, payload, opts...)
	if err != nil {
		return err
	}
	if _, err := e.client.InsertTx(ctx, tx, args, insertOpts); err != nil {
		return fmt.Errorf("job: enqueue tx: %w", err)
	}
	return nil
}

// buildJobArgs translates a task name, payload, and options into River job
// arguments and insert options.
func buildJobArgs(name string, payload any, opts ...EnqueueOption) (*taskArgs, *river.InsertOpts, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("job: marshal payload: %w", err)
		}
	}

	cfg := &enqueueConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	args := &taskArgs{TaskName: name, Payload: raw}
	insertOpts := &river.InsertOpts{}
	if cfg.queue != "" {
		insertOpts.Queue = cfg.queue
	}
	if cfg.scheduledAt != nil {
		insertOpts.ScheduledAt = *cfg.scheduledAt
	}
	if cfg.maxAttempts > 0 {
		insertOpts.MaxAttempts = cfg.maxAttempts
	}
	if cfg.priority > 0 {
		insertOpts.Priority = cfg.priority
	}
	if len(cfg.tags) > 0 {
		insertOpts.Tags = cfg.tags
	}
	if cfg.uniqueFor > 0 {
		// ByArgs makes the tagged taskArgs fields participate in the
		// uniqueness hash. Without it every task of every file would
		// collapse onto the shared kind within the window.
		insertOpts.UniqueOpts = river.UniqueOpts{ByArgs: true, ByPeriod: cfg.uniqueFor}
		if cfg.uniqueKey != "" {
			args.UniqueKey = cfg.uniqueKey
		}
	}

	return args, insertOpts, nil
}
