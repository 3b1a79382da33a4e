package index

import "errors"

var (
	// ErrSourceRequired is returned when an index is created without a document source.
	ErrSourceRequired = errors.New("document source required")

	// ErrTokenizerRequired is returned when a nil tokenizer is configured.
	ErrTokenizerRequired = errors.New("tokenizer required")

	// ErrUnknownTokenizer is returned for unrecognized tokenizer names.
	ErrUnknownTokenizer = errors.New("unknown tokenizer")
)
