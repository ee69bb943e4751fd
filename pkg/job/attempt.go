package job

import "context"

// Attempt carries the queue's retry metadata for the currently executing
// job. Handlers use it to tell a retryable failure from the final one, e.g.
// to drive a file to its failed state only after the retry budget is spent.
type Attempt struct {
	// Number is the 1-based attempt counter.
	Number int

	// Max is the attempt ceiling for this job.
	Max int
}

// Final reports whether this is the last attempt the queue will make.
func (a Attempt) Final() bool {
	return a.Number >= a.Max
}

type attemptCtxKey struct{}

// WithAttempt stores attempt metadata in the context. The worker calls it
// before dispatching to the registered handler; tests use it to exercise
// handler behavior at a given point in the retry budget.
func WithAttempt(ctx context.Context, a Attempt) context.Context {
	return context.WithValue(ctx, attemptCtxKey{}, a)
}

// AttemptFromContext returns the attempt metadata for the currently
// executing job. Outside a worker context it returns false.
func AttemptFromContext(ctx context.Context) (Attempt, bool) {
	a, ok := ctx.Value(attemptCtxKey{}).(Attempt)
	return a, ok
}
