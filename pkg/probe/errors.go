package probe

import "errors"

var (
	ErrNotConnected       = errors.New("liveness check failed, skipping probe round")
	ErrInvalidHost        = errors.New("invalid probe host")
	ErrEmptyCommand       = errors.New("probe command template is empty")
	ErrInvalidInterval    = errors.New("probe interval must be at least one second")
	ErrInvalidConcurrency = errors.New("probe concurrency must be positive")
	ErrSchedulerStarted   = errors.New("scheduler already started")
)
