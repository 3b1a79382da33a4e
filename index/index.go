// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package index

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/poiesic/haystack/compare"
	"github.com/poiesic/haystack/core"
)

// DefaultFuzzyErrors is the error budget used to expand query tokens onto
// indexed tokens when no fuzzy comparison is configured.
const DefaultFuzzyErrors = 1

// posting records how strongly one document carries a token, per field.
type posting struct {
	fields map[string]float64 // normalized path -> summed occurrence weight
	total  float64
}

// Index is an inverted index over the documents returned by its source.
//
// Retrieval methods only read index state and may run concurrently with each
// other. Build, AddDocument and RemoveDocument must not run concurrently with
// anything else.
type Index struct {
	source    func() []*core.Document
	tokenizer Tokenizer
	fuzzy     compare.Func
	logger    *slog.Logger

	postings    map[string]map[core.DocumentID]*posting
	documents   map[core.DocumentID]*IndexDocument
	vocabulary  []string // sorted keys of postings
	totalLength int
	built       bool
}

// Option configures an Index.
type Option func(*Index) error

// WithTokenizer sets the tokenizer.
// Default is a WordTokenizer without stop words.
func WithTokenizer(tokenizer Tokenizer) Option {
	return func(ix *Index) error {
		if tokenizer == nil {
			return ErrTokenizerRequired
		}
		ix.tokenizer = tokenizer
		return nil
	}
}

// WithFuzzyComparison sets the comparison used to expand query tokens in
// non-exact retrieval. Default is Bitap with DefaultFuzzyErrors.
func WithFuzzyComparison(fn compare.Func) Option {
	return func(ix *Index) error {
		if fn == nil {
			fn = compare.BitapFunc(DefaultFuzzyErrors)
		}
		ix.fuzzy = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// New creates an empty, unbuilt index. source is consulted by Build for the
// current corpus.
func New(source func() []*core.Document, opts ...Option) (*Index, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	ix := &Index{
		source:    source,
		tokenizer: NewWordTokenizer(),
		fuzzy:     compare.BitapFunc(DefaultFuzzyErrors),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}
	ix.reset()
	return ix, nil
}

// Tokenizer returns the configured tokenizer.
func (ix *Index) Tokenizer() Tokenizer {
	return ix.tokenizer
}

// Built reports whether the index reflects a corpus.
func (ix *Index) Built() bool {
	return ix.built
}

func (ix *Index) reset() {
	ix.postings = make(map[string]map[core.DocumentID]*posting)
	ix.documents = make(map[core.DocumentID]*IndexDocument)
	ix.vocabulary = nil
	ix.totalLength = 0
	ix.built = false
}

// Build discards all index state and indexes every document from the source.
func (ix *Index) Build() {
	start := time.Now()
	ix.reset()
	for _, doc := range ix.source() {
		ix.insert(doc)
	}
	ix.vocabulary = slices.Sorted(maps.Keys(ix.postings))
	ix.built = true
	ix.logger.Debug("index built",
		"tokenizer", ix.tokenizer.Name(),
		"documents", len(ix.documents),
		"tokens", len(ix.postings),
		"duration", time.Since(start))
}

// AddDocument indexes doc, replacing any earlier version with the same ID.
// The result equals a Build over the resulting corpus.
func (ix *Index) AddDocument(doc *core.Document) {
	if _, ok := ix.documents[doc.ID]; ok {
		ix.RemoveDocument(doc)
	}
	for _, token := range ix.insert(doc) {
		ix.addVocabulary(token)
	}
	ix.built = true
}

// RemoveDocument drops doc from the index. Unknown documents are ignored.
func (ix *Index) RemoveDocument(doc *core.Document) {
	indexed, ok := ix.documents[doc.ID]
	if !ok {
		return
	}
	for token := range indexed.TokenMap {
		docs := ix.postings[token]
		delete(docs, doc.ID)
		if len(docs) == 0 {
			delete(ix.postings, token)
			ix.removeVocabulary(token)
		}
	}
	ix.totalLength -= indexed.Length
	delete(ix.documents, doc.ID)
}

// insert adds doc to postings and returns the tokens that were new to the index.
func (ix *Index) insert(doc *core.Document) []string {
	indexed, fields := ix.analyze(doc)
	var created []string
	for token, byField := range fields {
		docs, ok := ix.postings[token]
		if !ok {
			docs = make(map[core.DocumentID]*posting)
			ix.postings[token] = docs
			created = append(created, token)
		}
		docs[doc.ID] = &posting{fields: byField, total: indexed.TokenMap[token]}
	}
	ix.documents[doc.ID] = indexed
	ix.totalLength += indexed.Length
	return created
}

// analyze tokenizes every declaration of doc. Each occurrence of a token adds
// the declaration's normalized weight.
func (ix *Index) analyze(doc *core.Document) (*IndexDocument, map[string]map[string]float64) {
	indexed := &IndexDocument{Document: doc, TokenMap: SparseVector{}}
	fields := make(map[string]map[string]float64)
	for _, decl := range doc.Declarations {
		for _, token := range ix.tokenizer.Tokenize(decl.Text()) {
			indexed.TokenMap[token] += decl.NormalizedWeight
			indexed.Length++
			byField, ok := fields[token]
			if !ok {
				byField = make(map[string]float64)
				fields[token] = byField
			}
			byField[decl.NormalizedPath] += decl.NormalizedWeight
		}
	}
	return indexed, fields
}

func (ix *Index) addVocabulary(token string) {
	i, found := slices.BinarySearch(ix.vocabulary, token)
	if !found {
		ix.vocabulary = slices.Insert(ix.vocabulary, i, token)
	}
}

func (ix *Index) removeVocabulary(token string) {
	if i, found := slices.BinarySearch(ix.vocabulary, token); found {
		ix.vocabulary = slices.Delete(ix.vocabulary, i, i+1)
	}
}

// GetQueryTokenMapFromValue tokenizes a query value into a sparse vector of
// token counts.
func (ix *Index) GetQueryTokenMapFromValue(value string) SparseVector {
	tokens := SparseVector{}
	for _, token := range ix.tokenizer.Tokenize(value) {
		tokens[token]++
	}
	return tokens
}

// InexactKRetrievalByValue tokenizes value and runs InexactKRetrievalByTokenMap.
func (ix *Index) InexactKRetrievalByValue(value string, filter []core.DocumentID, exact bool, field string) []core.DocumentID {
	return ix.InexactKRetrievalByTokenMap(ix.GetQueryTokenMapFromValue(value), filter, exact, field)
}

// InexactKRetrievalByTokenMap returns the documents sharing tokens with the
// query, ordered by descending overlap weight and then ascending ID.
//
// A non-nil filter restricts results to the listed documents. A non-empty
// field restricts matching to declarations with that normalized path. When
// exact is false each query token also matches every indexed token the fuzzy
// comparison accepts, weighted by its score.
func (ix *Index) InexactKRetrievalByTokenMap(tokens SparseVector, filter []core.DocumentID, exact bool, field string) []core.DocumentID {
	results := []core.DocumentID{}
	if !ix.built || len(tokens) == 0 {
		return results
	}

	var allowed map[core.DocumentID]bool
	if filter != nil {
		allowed = make(map[core.DocumentID]bool, len(filter))
		for _, id := range filter {
			allowed[id] = true
		}
	}

	scores := make(map[core.DocumentID]float64)
	for _, queryToken := range slices.Sorted(maps.Keys(tokens)) {
		queryWeight := tokens[queryToken]
		for _, m := range ix.expand(queryToken, exact) {
			for id, p := range ix.postings[m.token] {
				if allowed != nil && !allowed[id] {
					continue
				}
				weight := p.total
				if field != "" {
					var ok bool
					if weight, ok = p.fields[field]; !ok {
						continue
					}
				}
				scores[id] += queryWeight * weight * m.score
			}
		}
	}

	for id := range scores {
		results = append(results, id)
	}
	slices.SortFunc(results, func(a, b core.DocumentID) int {
		if c := cmp.Compare(scores[b], scores[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return results
}

type tokenMatch struct {
	token string
	score float64
}

func (ix *Index) expand(queryToken string, exact bool) []tokenMatch {
	if exact {
		if _, ok := ix.postings[queryToken]; ok {
			return []tokenMatch{{token: queryToken, score: 1}}
		}
		return nil
	}
	var matches []tokenMatch
	for _, token := range ix.vocabulary {
		if s := ix.fuzzy(queryToken, token); s > 0 {
			matches = append(matches, tokenMatch{token: token, score: s})
		}
	}
	return matches
}

// GetSparseIndexVectorsFromArray pairs the query vector with the vector of
// each listed document, in input order. Documents unknown to the index are
// skipped.
func (ix *Index) GetSparseIndexVectorsFromArray(tokens SparseVector, ids []core.DocumentID) []VectorPair {
	pairs := make([]VectorPair, 0, len(ids))
	for _, id := range ids {
		indexed, ok := ix.documents[id]
		if !ok {
			continue
		}
		pairs = append(pairs, VectorPair{
			Document:       indexed.Document,
			QueryVector:    tokens,
			DocumentVector: indexed.TokenMap,
		})
	}
	return pairs
}

// GetStatistics returns corpus-wide aggregates.
func (ix *Index) GetStatistics() Statistics {
	stats := Statistics{
		NumberOfDocuments: len(ix.documents),
		NumberOfTokens:    len(ix.postings),
	}
	if stats.NumberOfDocuments > 0 {
		stats.AverageDocumentLength = float64(ix.totalLength) / float64(stats.NumberOfDocuments)
	}
	return stats
}

// GetAllIndexDocuments returns every indexed document ordered by ID.
func (ix *Index) GetAllIndexDocuments() []IndexDocument {
	ids := slices.Sorted(maps.Keys(ix.documents))
	out := make([]IndexDocument, 0, len(ids))
	for _, id := range ids {
		out = append(out, *ix.documents[id])
	}
	return out
}

// GetQueryIndexDocument analyzes doc the way Build would, without adding it.
func (ix *Index) GetQueryIndexDocument(doc *core.Document) IndexDocument {
	indexed, _ := ix.analyze(doc)
	return *indexed
}

// Posting is one document's entry in a token's postings list.
type Posting struct {
	DocumentID core.DocumentID
	Fields     map[string]float64
}

// TermPostings lists the postings of one token.
type TermPostings struct {
	Token    string
	Postings []Posting
}

// Snapshot returns the postings ordered by token and document ID.
func (ix *Index) Snapshot() []TermPostings {
	out := make([]TermPostings, 0, len(ix.postings))
	for _, token := range slices.Sorted(maps.Keys(ix.postings)) {
		docs := ix.postings[token]
		entry := TermPostings{Token: token, Postings: make([]Posting, 0, len(docs))}
		for _, id := range slices.Sorted(maps.Keys(docs)) {
			entry.Postings = append(entry.Postings, Posting{DocumentID: id, Fields: maps.Clone(docs[id].fields)})
		}
		out = append(out, entry)
	}
	return out
}
