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

package haystack

import (
	"context"
	"time"

	"github.com/poiesic/haystack/compare"
	"github.com/poiesic/haystack/core"
	"github.com/poiesic/haystack/preprocess"
	"github.com/poiesic/haystack/query"
)

// SearchOptions tune a single search call. A nil *SearchOptions uses the
// engine settings.
type SearchOptions struct {
	// Filter restricts Search and FullText to the documents the query
	// returns. Query ignores it.
	Filter *query.Query

	// Limit overrides the engine limit when positive.
	Limit int

	// Exact disables fuzzy token expansion in FullText.
	Exact bool

	// Field restricts FullText to one normalized path.
	Field string
}

func (e *Engine) resultLimit(opts *SearchOptions) int {
	if opts != nil && opts.Limit > 0 {
		return opts.Limit
	}
	return e.limit
}

func filterQuery(opts *SearchOptions) *query.Query {
	if opts == nil {
		return nil
	}
	return opts.Filter
}

// Search compares value against every declaration of the corpus with the
// default comparison strategy. Each matching document yields one result for
// its best declaration; relevance is the comparison score scaled by that
// declaration's normalized weight. With a limit the scan stops after that
// many matches in corpus order.
func (e *Engine) Search(value any, opts *SearchOptions) ([]*SearchResult, error) {
	start := time.Now()
	docs := e.corpus
	if q := filterQuery(opts); q != nil {
		ids, err := e.planner.ExecuteQuery(q)
		if err != nil {
			return nil, err
		}
		docs = e.candidates(ids)
	}

	term := e.termText(value)
	limit := e.resultLimit(opts)
	results := []*SearchResult{}
	for _, doc := range docs {
		best, bestScore := -1, 0.0
		for i, decl := range doc.Declarations {
			if s := e.comparison(term, decl.Text()); s > bestScore {
				best, bestScore = i, s
			}
		}
		if best < 0 {
			continue
		}
		results = append(results, newSearchResult(doc, doc.Declarations[best], bestScore))
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	sortResults(results, e.sorting)
	e.logger.Debug("search", "term", term, "candidates", len(docs), "results", len(results), "duration", time.Since(start))
	return results, nil
}

// SearchAsync is Search with the comparisons fanned out through the
// scheduler, one task per document. It returns the same results as Search.
func (e *Engine) SearchAsync(ctx context.Context, value any, opts *SearchOptions) ([]*SearchResult, error) {
	start := time.Now()
	docs := e.corpus
	if q := filterQuery(opts); q != nil {
		ids, err := e.planner.ExecuteQueryAsync(ctx, q)
		if err != nil {
			return nil, err
		}
		docs = e.candidates(ids)
	}

	term := e.termText(value)
	docs, payloads := e.requests(e.comparisonName, term, docs, "")
	scores, err := e.runComparisons(ctx, e.comparisonName, payloads)
	if err != nil {
		return nil, err
	}

	limit := e.resultLimit(opts)
	results := []*SearchResult{}
	for i, doc := range docs {
		best, score := compare.Best(scores[i])
		if best < 0 {
			continue
		}
		results = append(results, newSearchResult(doc, doc.Declarations[best], score))
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	sortResults(results, e.sorting)
	e.logger.Debug("search async", "term", term, "candidates", len(docs), "results", len(results), "duration", time.Since(start))
	return results, nil
}

func newSearchResult(doc *core.Document, decl *core.Declaration, score float64) *SearchResult {
	return &SearchResult{
		Item:            doc.Origin,
		OriginIndex:     doc.OriginIndex,
		Path:            decl.Path,
		Value:           decl.OriginValue,
		Relevance:       score * decl.NormalizedWeight,
		ComparisonScore: score,
	}
}

// FullText retrieves documents from the index and ranks them with the
// full-text scoring function. The value is always preprocessed.
func (e *Engine) FullText(value any, opts *SearchOptions) ([]*SearchResult, error) {
	return e.fullText(value, opts, e.planner.ExecuteQuery)
}

// FullTextAsync is FullText with the filter query evaluated asynchronously.
func (e *Engine) FullTextAsync(ctx context.Context, value any, opts *SearchOptions) ([]*SearchResult, error) {
	return e.fullText(value, opts, func(q *query.Query) ([]core.DocumentID, error) {
		return e.planner.ExecuteQueryAsync(ctx, q)
	})
}

func (e *Engine) fullText(value any, opts *SearchOptions, execute func(*query.Query) ([]core.DocumentID, error)) ([]*SearchResult, error) {
	if e.index == nil {
		return nil, ErrNoIndexStrategy
	}
	if e.scoring == nil {
		return nil, ErrNoScoringStrategy
	}
	tokens := e.index.GetQueryTokenMapFromValue(core.ValueText(preprocess.Apply(value, e.preprocessors)))

	var filter []core.DocumentID
	if q := filterQuery(opts); q != nil {
		ids, err := execute(q)
		if err != nil {
			return nil, err
		}
		filter = ids
	}
	var (
		exact bool
		field string
	)
	if opts != nil {
		exact, field = opts.Exact, opts.Field
	}

	ids := e.index.InexactKRetrievalByTokenMap(tokens, filter, exact, field)
	if limit := e.resultLimit(opts); limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	results := []*SearchResult{}
	for _, pair := range e.index.GetSparseIndexVectorsFromArray(tokens, ids) {
		score := e.scoring(pair.QueryVector, pair.DocumentVector)
		results = append(results, &SearchResult{
			Item:            pair.Document.Origin,
			OriginIndex:     pair.Document.OriginIndex,
			Relevance:       score,
			ComparisonScore: score,
		})
	}
	sortResults(results, e.sorting)
	return results, nil
}

// Query evaluates a query tree and returns the matching records in corpus
// order, before sorting. With a limit only the first ids the planner returned
// are kept.
func (e *Engine) Query(q *query.Query, opts *SearchOptions) ([]*SearchResult, error) {
	ids, err := e.planner.ExecuteQuery(q)
	if err != nil {
		return nil, err
	}
	return e.queryResults(ids, opts), nil
}

// QueryAsync is Query evaluated with ExecuteQueryAsync.
func (e *Engine) QueryAsync(ctx context.Context, q *query.Query, opts *SearchOptions) ([]*SearchResult, error) {
	ids, err := e.planner.ExecuteQueryAsync(ctx, q)
	if err != nil {
		return nil, err
	}
	return e.queryResults(ids, opts), nil
}

func (e *Engine) queryResults(ids []core.DocumentID, opts *SearchOptions) []*SearchResult {
	if limit := e.resultLimit(opts); limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	results := []*SearchResult{}
	for _, doc := range e.candidates(ids) {
		results = append(results, &SearchResult{
			Item:        doc.Origin,
			OriginIndex: doc.OriginIndex,
			Relevance:   1,
		})
	}
	sortResults(results, e.sorting)
	return results
}
