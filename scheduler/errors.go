package scheduler

import "errors"

var (
	// ErrTerminated is returned to tasks that were still queued when their strategy was terminated.
	ErrTerminated = errors.New("thread was terminated")

	// ErrUnknownStrategy is returned when running a task for an unregistered strategy.
	ErrUnknownStrategy = errors.New("strategy not registered")

	// ErrAlreadyRegistered is returned when registering a strategy name twice.
	ErrAlreadyRegistered = errors.New("strategy already registered")

	// ErrNilFactory is returned when registering a nil factory.
	ErrNilFactory = errors.New("execution context factory required")

	// ErrContextCreation is returned when a factory fails to create an execution context.
	ErrContextCreation = errors.New("failed to create execution context")

	// ErrExecutionPanic is returned when an execution context panics while running a task.
	ErrExecutionPanic = errors.New("execution context panicked")

	// ErrInvalidMaxThreads is returned for a concurrency ceiling below one other than Unlimited.
	ErrInvalidMaxThreads = errors.New("max threads must be at least 1 or Unlimited")

	// ErrClosed is returned when running tasks on a released scheduler.
	ErrClosed = errors.New("scheduler released")
)
