package scheduler

import "errors"

var (
	// ErrSchedulerRunning is returned when jobs are registered after Start
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrSchedulerNotRunning is returned when triggering a job on a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobNotFound is returned when a job is not registered
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyRunning is returned when a manual trigger overlaps a run
	ErrJobAlreadyRunning = errors.New("job is already running")

	// ErrInvalidJob is returned for jobs without a name, interval or function
	ErrInvalidJob = errors.New("invalid job definition")
)
