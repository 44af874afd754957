package supervisor

import "errors"

var (
	// ErrInvalidProcessCount is returned by New when fewer than one process is requested.
	ErrInvalidProcessCount = errors.New("process count must be at least 1")
	// ErrAlreadyStarted is returned by every Start after the first.
	ErrAlreadyStarted = errors.New("manager already started")
	// ErrLaunch wraps a failure to create a worker process.
	ErrLaunch = errors.New("failed to launch worker")
	// ErrWaitTimeout is returned by Wait when the pool did not reach the desired size in time.
	ErrWaitTimeout = errors.New("workers did not reach desired count in time")
	// ErrNoEntry is returned by New when a worker entry is required but missing.
	ErrNoEntry = errors.New("worker entry required")
)
