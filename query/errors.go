package query

import "errors"

var (
	// ErrInvalidQuery indicates a malformed query tree.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNoSuchCluster is returned when a cluster criterion names an unknown cluster.
	ErrNoSuchCluster = errors.New("no such cluster found")

	// ErrNoIndexStrategy is returned when an index criterion is used without an index.
	ErrNoIndexStrategy = errors.New("no index strategy has been configured")

	// ErrRetrieverRequired is returned when a planner is created without a retriever.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrInvalidCacheSize is returned for a non-positive result cache size.
	ErrInvalidCacheSize = errors.New("cache size must be positive")
)
