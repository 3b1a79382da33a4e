// Package spelling defines the contract between the engine and spelling
// correction strategies.
package spelling

// WordMeta describes one word of the corpus vocabulary.
type WordMeta struct {
	Count int // Occurrences across all string declarations
}

// Speller suggests replacements for words missing from the corpus.
type Speller interface {
	// ID names the speller so callers can pick one.
	ID() string

	// Build receives the corpus vocabulary, keyed by lower-cased word.
	Build(words map[string]*WordMeta)

	// Evaluate returns a suggested replacement for word, or "" for none.
	Evaluate(word string) string
}

// Correction is one replaced word.
type Correction struct {
	Word       string `json:"word"`
	Suggestion string `json:"suggestion"`
}

// Result is the outcome of a spelling check.
type Result struct {
	Result      string       `json:"result"` // Preprocessed input words with every correction applied
	Corrections []Correction `json:"corrections"`
}
