package index

import (
	"fmt"
	"strings"
	"unicode"
)

// Tokenizer splits a declaration value into index tokens. The same tokenizer
// is applied at build time and to query values.
type Tokenizer interface {
	Name() string
	Tokenize(text string) []string
}

// Names accepted by TokenizerByName.
const (
	TokenizerWord   = "word"
	TokenizerPrefix = "prefix"
)

// TokenizerByName returns a tokenizer with default settings.
func TokenizerByName(name string) (Tokenizer, error) {
	switch name {
	case TokenizerWord, "":
		return NewWordTokenizer(), nil
	case TokenizerPrefix, "startsWith":
		return PrefixTokenizer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTokenizer, name)
	}
}

// Common English stop words
var defaultStopWords = []string{
	"the", "a", "an", "be", "is", "are", "was", "to", "of", "and", "in", "that",
	"have", "it", "for", "not", "on", "with", "as", "you", "do", "at", "this",
	"but", "by", "from",
}

// DefaultStopWords returns a copy of the built-in stop word list.
func DefaultStopWords() []string {
	out := make([]string, len(defaultStopWords))
	copy(out, defaultStopWords)
	return out
}

// WordTokenizer lower-cases text and splits it on anything that is not a
// letter or digit. Stop words are dropped when configured.
type WordTokenizer struct {
	stopWords map[string]bool
}

// WordOption configures a WordTokenizer.
type WordOption func(*WordTokenizer)

// WithStopWords drops the given words from token streams.
func WithStopWords(words ...string) WordOption {
	return func(t *WordTokenizer) {
		for _, w := range words {
			t.stopWords[strings.ToLower(w)] = true
		}
	}
}

// NewWordTokenizer creates a word tokenizer. No stop words are filtered by default.
func NewWordTokenizer(opts ...WordOption) *WordTokenizer {
	t := &WordTokenizer{stopWords: make(map[string]bool)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name implements Tokenizer.
func (t *WordTokenizer) Name() string { return TokenizerWord }

// Tokenize implements Tokenizer.
func (t *WordTokenizer) Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(t.stopWords) == 0 {
		return words
	}
	filtered := words[:0]
	for _, w := range words {
		if !t.stopWords[w] {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

// PrefixTokenizer emits every prefix of the whole upper-cased value, which
// turns "starts with" queries into exact postings lookups at the cost of a
// larger index.
type PrefixTokenizer struct{}

// Name implements Tokenizer.
func (PrefixTokenizer) Name() string { return TokenizerPrefix }

// Tokenize implements Tokenizer.
func (PrefixTokenizer) Tokenize(text string) []string {
	runes := []rune(strings.ToUpper(text))
	tokens := make([]string, 0, len(runes))
	for i := range runes {
		tokens = append(tokens, string(runes[:i+1]))
	}
	return tokens
}
