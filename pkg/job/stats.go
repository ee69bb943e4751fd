package job

import (
	"context"
	"fmt"
)

// Stats aggregates queue depth counters for observability endpoints.
type Stats struct {
	// Waiting counts jobs not yet picked up: available, scheduled,
	// retryable, and pending.
	Waiting int64 `json:"waiting"`

	// Active counts jobs currently executing.
	Active int64 `json:"active"`

	// Completed counts finished jobs still retained by the queue.
	Completed int64 `json:"completed"`

	// Failed counts jobs that exhausted their retries or were cancelled.
	Failed int64 `json:"failed"`
}

// Stats returns queue depth counters by aggregating River's job table.
// Works from the Enqueuer so both insert-only and worker processes can
// report queue depth.
func (e *Enqueuer) Stats(ctx context.Context) (*Stats, error) {
	rows, err := e.pool.Query(ctx,
		`SELECT state, count(*) FROM river_job GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("job: queue stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var state string
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("job: queue stats: %w", err)
		}
		switch state {
		case "available", "scheduled", "retryable", "pending":
			stats.Waiting += count
		case "running":
			stats.Active += count
		case "completed":
			stats.Completed += count
		case "discarded", "cancelled":
			stats.Failed += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job: queue stats: %w", err)
	}
	return &stats, nil
}
