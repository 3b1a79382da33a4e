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
	"fmt"

	"github.com/poiesic/haystack/cluster"
	"github.com/poiesic/haystack/compare"
	"github.com/poiesic/haystack/core"
	"github.com/poiesic/haystack/index"
	"github.com/poiesic/haystack/preprocess"
	"github.com/poiesic/haystack/query"
)

// IndexRetrieval answers an index criterion. The value is always
// preprocessed so it matches the indexed declaration values.
func (e *Engine) IndexRetrieval(q *query.Query, filter []core.DocumentID) ([]core.DocumentID, error) {
	if e.index == nil {
		return nil, ErrNoIndexStrategy
	}
	value := core.ValueText(preprocess.Apply(q.Value, e.preprocessors))
	return e.index.InexactKRetrievalByValue(value, filter, q.Exact, q.Field), nil
}

// ComparisonRetrieval answers a comparison criterion by scanning the corpus
// on the calling goroutine. A document matches when any of its declarations,
// restricted to q.Field when set, scores above zero.
func (e *Engine) ComparisonRetrieval(q *query.Query, filter []core.DocumentID) ([]core.DocumentID, error) {
	_, fn, err := e.comparisonFor(q.Strategy)
	if err != nil {
		return nil, err
	}
	term := e.termText(q.Value)
	ids := []core.DocumentID{}
	for _, doc := range e.candidates(filter) {
		for _, decl := range doc.DeclarationsForField(q.Field) {
			if fn(term, decl.Text()) > 0 {
				ids = append(ids, doc.ID)
				break
			}
		}
	}
	return ids, nil
}

// ComparisonRetrievalAsync is ComparisonRetrieval with one scheduler task per
// document. Results keep corpus order.
func (e *Engine) ComparisonRetrievalAsync(ctx context.Context, q *query.Query, filter []core.DocumentID) ([]core.DocumentID, error) {
	name, _, err := e.comparisonFor(q.Strategy)
	if err != nil {
		return nil, err
	}
	docs, payloads := e.requests(name, e.termText(q.Value), e.candidates(filter), q.Field)
	scores, err := e.runComparisons(ctx, name, payloads)
	if err != nil {
		return nil, err
	}
	ids := []core.DocumentID{}
	for i, s := range scores {
		if compare.AnyMatch(s) {
			ids = append(ids, docs[i].ID)
		}
	}
	return ids, nil
}

// ClusterRetrieval answers a cluster criterion. A non-empty q.Value becomes
// the query document, analyzed by the index when one is configured.
func (e *Engine) ClusterRetrieval(q *query.Query) ([]core.DocumentID, error) {
	var target cluster.Cluster
	for _, c := range e.clusters {
		if c.ID() == q.ClusterID {
			target = c
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", query.ErrNoSuchCluster, q.ClusterID)
	}

	queryDoc := index.IndexDocument{
		Document: core.NewDocument(0, nil, -1, nil),
		TokenMap: index.SparseVector{},
	}
	if q.Value != nil && core.ValueText(q.Value) != "" {
		value := e.term(q.Value)
		doc := core.NewDocument(0, value, -1, []*core.Declaration{core.NewDeclaration(nil, value)})
		queryDoc.Document = doc
		if e.index != nil {
			queryDoc = e.index.GetQueryIndexDocument(doc)
		}
	}
	ids := target.Evaluate(queryDoc, q.Options)
	if ids == nil {
		ids = []core.DocumentID{}
	}
	return ids, nil
}

func (e *Engine) comparisonFor(name string) (string, compare.Func, error) {
	if name == "" || name == e.comparisonName {
		return e.comparisonName, e.comparison, nil
	}
	fn, err := e.registry.Lookup(name)
	if err != nil {
		return "", nil, err
	}
	return name, fn, nil
}

// term applies the preprocessors to a search term when configured to.
func (e *Engine) term(v any) any {
	if e.applyToTerm {
		return preprocess.Apply(v, e.preprocessors)
	}
	return v
}

func (e *Engine) termText(v any) string {
	return core.ValueText(e.term(v))
}

// candidates returns the corpus restricted to filter, in corpus order. A nil
// filter returns the whole corpus.
func (e *Engine) candidates(filter []core.DocumentID) []*core.Document {
	if filter == nil {
		return e.corpus
	}
	allowed := make(map[core.DocumentID]struct{}, len(filter))
	for _, id := range filter {
		allowed[id] = struct{}{}
	}
	out := make([]*core.Document, 0, len(filter))
	for _, doc := range e.corpus {
		if _, ok := allowed[doc.ID]; ok {
			out = append(out, doc)
		}
	}
	return out
}

// requests builds one comparison request per document that has declarations
// in field. It returns those documents alongside their encoded requests.
func (e *Engine) requests(strategy, term string, docs []*core.Document, field string) ([]*core.Document, [][]byte) {
	var (
		kept     []*core.Document
		payloads [][]byte
	)
	for _, doc := range docs {
		decls := doc.DeclarationsForField(field)
		if len(decls) == 0 {
			continue
		}
		contexts := make([]string, len(decls))
		for i, decl := range decls {
			contexts[i] = decl.Text()
		}
		kept = append(kept, doc)
		payloads = append(payloads, compare.MarshalRequest(compare.Request{
			Strategy: strategy,
			Term:     term,
			Contexts: contexts,
		}))
	}
	return kept, payloads
}

// runComparisons runs the encoded requests on the scheduler and returns the
// per-declaration scores of each, in request order.
func (e *Engine) runComparisons(ctx context.Context, strategy string, payloads [][]byte) ([][]float64, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	s, err := e.scheduler(strategy)
	if err != nil {
		return nil, err
	}
	results, err := s.RunMany(ctx, strategy, payloads)
	if err != nil {
		return nil, err
	}
	scores := make([][]float64, len(results))
	for i, r := range results {
		v, ok := r.([]float64)
		if !ok {
			return nil, fmt.Errorf("unexpected comparison result %T", r)
		}
		scores[i] = v
	}
	return scores, nil
}
