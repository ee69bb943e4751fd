package job

import "errors"

var (
	// ErrUnknownTask signals an enqueue or execution attempt for a task
	// name that was never registered.
	ErrUnknownTask = errors.New("job: unknown task")

	// ErrInvalidPayload signals a payload that cannot be unmarshaled into
	// the task's expected type.
	ErrInvalidPayload = errors.New("job: invalid payload")

	// ErrAlreadyStarted signals a second Start on a running manager.
	ErrAlreadyStarted = errors.New("job: already started")

	// ErrNotStarted signals a Stop on a manager that is not running.
	ErrNotStarted = errors.New("job: not started")

	// ErrPoolRequired signals a nil database pool at construction.
	ErrPoolRequired = errors.New("job: pool is required")
)
