package health

import "errors"

var (
	// ErrCheckFailed wraps a check's own error in the readiness response.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout marks a check that hit the evaluation deadline.
	ErrCheckTimeout = errors.New("health: check timeout")
)
