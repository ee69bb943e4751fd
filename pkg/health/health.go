package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout = 5 * time.Second

	// StatusHealthy indicates all checks passed.
	StatusHealthy = "healthy"
	// StatusUnhealthy indicates one or more checks failed.
	StatusUnhealthy = "unhealthy"
)

// CheckFunc is the standard health check function signature.
// This matches the healthcheck closures exposed by the db, redis, and job packages.
type CheckFunc func(ctx context.Context) error

// Checks is a map of named health check functions.
type Checks map[string]CheckFunc

// Response aggregates the outcome of a readiness evaluation.
type Response struct {
	Status string           `json:"status"`
	Checks map[string]Check `json:"checks,omitempty"`
}

// Check reports the outcome of a single named check.
type Check struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type config struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures readiness evaluation.
type Option func(*config)

// WithTimeout bounds the total time spent running checks.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used to report failing checks.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// evaluate runs every check concurrently and aggregates the results. A check
// that outlives the shared deadline is reported as a timeout rather than a
// generic failure.
func evaluate(ctx context.Context, checks Checks, cfg *config) *Response {
	if len(checks) == 0 {
		return &Response{Status: StatusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	type outcome struct {
		name  string
		check Check
	}

	ch := make(chan outcome, len(checks))

	var g errgroup.Group
	for name, check := range checks {
		g.Go(func() error {
			started := time.Now()
			err := check(ctx)
			res := Check{
				Status:    StatusHealthy,
				LatencyMS: time.Since(started).Milliseconds(),
			}
			if err != nil {
				res.Status = StatusUnhealthy
				res.Error = checkError(err).Error()
				cfg.logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("error", err.Error()),
				)
			}
			ch <- outcome{name: name, check: res}
			return nil
		})
	}
	_ = g.Wait()
	close(ch)

	resp := &Response{
		Status: StatusHealthy,
		Checks: make(map[string]Check, len(checks)),
	}
	for res := range ch {
		resp.Checks[res.name] = res.check
		if res.check.Status == StatusUnhealthy {
			resp.Status = StatusUnhealthy
		}
	}
	return resp
}

func checkError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrCheckTimeout, err)
	}
	return errors.Join(ErrCheckFailed, err)
}
