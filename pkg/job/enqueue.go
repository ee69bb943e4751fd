package job

import "time"

type enqueueConfig struct {
	scheduledAt *time.Time
	queue       string
	uniqueKey   string
	tags        []string
	maxAttempts int
	uniqueFor   time.Duration
	priority    int
}

// EnqueueOption configures a single enqueued job.
type EnqueueOption func(*enqueueConfig)

// InQueue routes the job to a named queue instead of the default one.
// The queue must be configured on the manager via WithQueue.
//
// Example:
//
//	q.Enqueue(ctx, "generate-thumbnail", payload, job.InQueue("media"))
func InQueue(name string) EnqueueOption {
	return func(c *enqueueConfig) {
		if name != "" {
			c.queue = name
		}
	}
}

// ScheduledAt delays processing until a specific time.
func ScheduledAt(t time.Time) EnqueueOption {
	return func(c *enqueueConfig) {
		c.scheduledAt = &t
	}
}

// ScheduledIn delays processing by a duration from now.
func ScheduledIn(d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) {
		t := time.Now().Add(d)
		c.scheduledAt = &t
	}
}

// MaxAttempts caps how many times a failing job is retried.
// Defaults to River's default (25 attempts) when unset.
//
// Example:
//
//	q.Enqueue(ctx, "validate", payload, job.MaxAttempts(3))
func MaxAttempts(n int) EnqueueOption {
	return func(c *enqueueConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// UniqueFor suppresses duplicate jobs for the given period. Uniqueness is
// keyed on the task name plus the UniqueKey, so distinct tasks never shadow
// each other inside the window; a matching insert is silently skipped,
// which makes redriving a fan-out safe.
//
// Example:
//
//	q.Enqueue(ctx, "extract-metadata", payload,
//	    job.UniqueFor(time.Hour),
//	    job.UniqueKey(fileID+":extract-metadata"))
func UniqueFor(d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) {
		c.uniqueFor = d
	}
}

// UniqueKey narrows the deduplication scope used with UniqueFor. Without
// it, duplicates collapse per task name within the window.
func UniqueKey(key string) EnqueueOption {
	return func(c *enqueueConfig) {
		c.uniqueKey = key
	}
}

// Priority orders jobs within a queue; lower values run first. River's
// default is 1.
func Priority(p int) EnqueueOption {
	return func(c *enqueueConfig) {
		c.priority = p
	}
}

// Tags attaches metadata tags to the job for filtering and debugging.
func Tags(tags ...string) EnqueueOption {
	return func(c *enqueueConfig) {
		c.tags = append(c.tags, tags...)
	}
}
