package compare

import "errors"

var (
	// ErrUnknownStrategy is returned when a strategy name has not been registered.
	ErrUnknownStrategy = errors.New("unknown comparison strategy")

	// ErrStrategyExists is returned when registering a name that is already taken.
	ErrStrategyExists = errors.New("comparison strategy already registered")

	// ErrEmptyStrategyName is returned when registering a strategy without a name.
	ErrEmptyStrategyName = errors.New("comparison strategy name required")

	// ErrNilStrategy is returned when registering a nil comparison function.
	ErrNilStrategy = errors.New("comparison function required")

	// ErrMalformedRequest is returned when a task payload cannot be decoded.
	ErrMalformedRequest = errors.New("malformed comparison request")

	// ErrStrategyMismatch is returned when an executor receives a request for another strategy.
	ErrStrategyMismatch = errors.New("request strategy does not match executor")
)
