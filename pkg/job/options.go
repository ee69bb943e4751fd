package job

import (
	"context"
	"log/slog"
)

type config struct {
	registry   *taskRegistry
	queues     map[string]int
	logger     *slog.Logger
	schedules  []scheduleConfig
	maxWorkers int
}

func newConfig() *config {
	return &config{
		registry: newTaskRegistry(),
		queues:   make(map[string]int),
	}
}

type scheduleConfig struct {
	handler  scheduledHandler
	name     string
	schedule string
}

// scheduledHandler is the signature of a periodic task's Handle method.
type scheduledHandler func(context.Context) error

// Option configures the job manager.
type Option func(*config)

// WithTask registers a task handler using structural typing. The task needs
// Name() and Handle(ctx, P) methods; the payload type P is inferred from the
// Handle signature.
//
// Example:
//
//	type ChecksumTask struct {
//	    broker storage.Broker
//	}
//
//	func (t *ChecksumTask) Name() string { return "generate-checksum" }
//	func (t *ChecksumTask) Handle(ctx context.Context, p Payload) error {
//	    return t.digest(ctx, p.Key)
//	}
//
//	job.WithTask(&ChecksumTask{broker})
func WithTask[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) Option {
	return func(c *config) {
		c.registry.register(task.Name(), newTaskWrapper[P, T](task))
	}
}

// WithScheduledTask registers a periodic task. The task needs Name(),
// Schedule(), and Handle(ctx) methods; Schedule() returns a 5-field cron
// expression (min hour day month weekday).
//
// Example:
//
//	type StaleUploadSweep struct {
//	    files registry.Store
//	}
//
//	func (t *StaleUploadSweep) Name() string     { return "sweep-stale-uploads" }
//	func (t *StaleUploadSweep) Schedule() string { return "*/10 * * * *" }
//	func (t *StaleUploadSweep) Handle(ctx context.Context) error {
//	    return t.sweep(ctx)
//	}
//
//	job.WithScheduledTask(&StaleUploadSweep{files})
func WithScheduledTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T) Option {
	return func(c *config) {
		c.schedules = append(c.schedules, scheduleConfig{
			name:     task.Name(),
			schedule: task.Schedule(),
			handler:  task.Handle,
		})
	}
}

// WithQueue adds a named queue with its own worker count, for workloads that
// should not compete with the default queue.
//
// Example:
//
//	job.WithQueue("media", 2)
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithLogger sets the logger for job processing. Defaults to a silent logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxWorkers bounds concurrency on the default queue. Defaults to 100.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}
