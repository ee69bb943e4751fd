package job

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"
)

// taskArgs is the single River job arguments type shared by all tasks. The
// task name routes the job to its registered handler on the worker side.
// All jobs share one River kind, so the task name and unique key carry the
// `river:"unique"` tag: with UniqueOpts.ByArgs set they are what
// distinguishes inserts within a uniqueness window. The payload stays out
// of the hash so volatile fields like correlation ids cannot defeat
// deduplication.
type taskArgs struct {
	TaskName  string          `json:"task_name" river:"unique"`
	UniqueKey string          `json:"unique_key,omitempty" river:"unique"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (taskArgs) Kind() string {
	return "filebox:task"
}

// taskWorker dispatches every job to the registry by task name.
type taskWorker struct {
	river.WorkerDefaults[taskArgs]
	registry *taskRegistry
	logger   *slog.Logger
}

func (w *taskWorker) Work(ctx context.Context, job *river.Job[taskArgs]) error {
	exec, ok := w.registry.get(job.Args.TaskName)
	if !ok || exec == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTask, job.Args.TaskName)
	}

	// Handlers see the retry budget through the context, so a task can
	// react to exhausting its final attempt.
	ctx = WithAttempt(ctx, Attempt{Number: job.Attempt, Max: job.MaxAttempts})

	w.logger.DebugContext(ctx, "executing task",
		slog.String("task", job.Args.TaskName),
		slog.Int64("job_id", job.ID),
		slog.Int("attempt", job.Attempt),
	)

	if err := exec.Execute(ctx, job.Args.Payload); err != nil {
		w.logger.ErrorContext(ctx, "task failed",
			slog.String("task", job.Args.TaskName),
			slog.Int64("job_id", job.ID),
			slog.Int("attempt", job.Attempt),
			slog.Any("error", err),
		)
		return err
	}

	w.logger.DebugContext(ctx, "task completed",
		slog.String("task", job.Args.TaskName),
		slog.Int64("job_id", job.ID),
	)
	return nil
}

// scheduledTaskExecutor adapts a no-payload handler for the registry so
// periodic tasks run through the same dispatch path.
type scheduledTaskExecutor struct {
	handler scheduledHandler
}

func (e *scheduledTaskExecutor) Execute(ctx context.Context, _ json.RawMessage) error {
	return e.handler(ctx)
}

// buildPeriodicJobs turns configured schedules into River periodic jobs and
// registers their handlers.
func buildPeriodicJobs(cfg *config) ([]*river.PeriodicJob, error) {
	var jobs []*river.PeriodicJob
	for _, sched := range cfg.schedules {
		cronSchedule, err := parseCronSchedule(sched.schedule)
		if err != nil {
			return nil, fmt.Errorf("job: invalid cron schedule %q: %w", sched.schedule, err)
		}

		jobs = append(jobs, river.NewPeriodicJob(
			cronSchedule,
			func() (river.JobArgs, *river.InsertOpts) {
				return &taskArgs{TaskName: sched.name}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: false},
		))

		cfg.registry.register(sched.name, &scheduledTaskExecutor{handler: sched.handler})
	}
	return jobs, nil
}

type cronScheduleAdapter struct {
	schedule cron.Schedule
}

func (a *cronScheduleAdapter) Next(current time.Time) time.Time {
	return a.schedule.Next(current)
}

// parseCronSchedule accepts standard 5-field cron expressions.
func parseCronSchedule(expr string) (river.PeriodicSchedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &cronScheduleAdapter{schedule: schedule}, nil
}
