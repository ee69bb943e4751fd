// Package job provides background task processing on top of River, the
// Postgres-native job queue. It powers the post-upload processing pipeline:
// named tasks with JSON payloads, per-job retry ceilings with exponential
// backoff, priority ordering, bounded worker concurrency, and scheduled
// (cron) tasks.
//
// # Task definition
//
// Tasks are structs with Name() and Handle() methods; registration uses
// structural typing, so no interface import is needed:
//
//	type GenerateChecksum struct {
//	    broker storage.Broker
//	    files  registry.Store
//	}
//
//	func (t *GenerateChecksum) Name() string { return "generate-checksum" }
//	func (t *GenerateChecksum) Handle(ctx context.Context, p Payload) error {
//	    ...
//	}
//
//	manager, err := job.NewManager(pool,
//	    job.WithTask(&GenerateChecksum{broker: broker, files: files}),
//	    job.WithMaxWorkers(5),
//	)
//
// # Enqueueing
//
// Jobs can be enqueued before Start() is called and are processed once the
// manager starts:
//
//	err := manager.Enqueue(ctx, "generate-checksum", payload,
//	    job.MaxAttempts(3),
//	    job.UniqueKey(fileID.String()+":generate-checksum"),
//	    job.UniqueFor(time.Minute),
//	)
//
// Inside a handler, AttemptFromContext reports the current attempt and the
// ceiling, letting a task distinguish a retryable failure from its final one.
//
// # Scheduled tasks
//
// Periodic tasks implement Name(), Schedule() (a 5-field cron expression),
// and Handle(ctx):
//
//	job.WithScheduledTask(&processing.StaleUploadSweep{Files: files, TTL: ttl})
//
// Stats exposes waiting/active/completed/failed counts for observability,
// and Healthcheck integrates with the health endpoint.
package job
