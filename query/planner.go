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

package query

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/poiesic/haystack/core"
	"github.com/poiesic/haystack/metrics"
	"golang.org/x/sync/errgroup"
)

// Retriever answers leaf criteria. A nil filter means the whole corpus; a
// non-nil filter restricts the candidates to the given ids.
type Retriever interface {
	IndexRetrieval(q *Query, filter []core.DocumentID) ([]core.DocumentID, error)
	ComparisonRetrieval(q *Query, filter []core.DocumentID) ([]core.DocumentID, error)
	ComparisonRetrievalAsync(ctx context.Context, q *Query, filter []core.DocumentID) ([]core.DocumentID, error)
	ClusterRetrieval(q *Query) ([]core.DocumentID, error)
}

type cacheKey struct {
	fingerprint uint64
	generation  uint64
}

// Planner evaluates query trees against a Retriever.
type Planner struct {
	retriever  Retriever
	cache      *lru.Cache[cacheKey, []core.DocumentID]
	generation func() uint64
	monitor    Monitor
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Planner.
type Option func(*Planner) error

// WithCache memoizes up to size results. Entries are keyed by the query
// fingerprint and the value of the generation function, so the caller must
// advance the generation whenever the corpus or index changes.
func WithCache(size int, generation func() uint64) Option {
	return func(p *Planner) error {
		if size <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidCacheSize, size)
		}
		cache, err := lru.New[cacheKey, []core.DocumentID](size)
		if err != nil {
			return err
		}
		p.cache = cache
		p.generation = generation
		return nil
	}
}

// WithMonitor sets a monitor that observes every evaluation.
func WithMonitor(monitor Monitor) Option {
	return func(p *Planner) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		p.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithMetrics records query counts, latencies and cache usage.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Planner) error {
		p.metrics = m
		return nil
	}
}

// NewPlanner creates a planner over retriever.
func NewPlanner(retriever Retriever, opts ...Option) (*Planner, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	p := &Planner{
		retriever: retriever,
		monitor:   &noopMonitor{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Purge drops every cached result.
func (p *Planner) Purge() {
	if p.cache != nil {
		p.cache.Purge()
	}
}

// ExecuteQuery evaluates q bottom-up on the calling goroutine.
func (p *Planner) ExecuteQuery(q *Query) ([]core.DocumentID, error) {
	return p.execute(q, "sync", func() ([]core.DocumentID, error) {
		return p.evaluate(q)
	})
}

// ExecuteQueryAsync evaluates q with siblings running concurrently and
// comparison criteria fanned out through the retriever's async path. It
// returns the same ids in the same order as ExecuteQuery.
func (p *Planner) ExecuteQueryAsync(ctx context.Context, q *Query) ([]core.DocumentID, error) {
	return p.execute(q, "async", func() ([]core.DocumentID, error) {
		return p.evaluateAsync(ctx, q)
	})
}

func (p *Planner) execute(q *Query, mode string, eval func() ([]core.DocumentID, error)) ([]core.DocumentID, error) {
	start := time.Now()
	if err := q.Validate(); err != nil {
		p.metrics.ObserveQuery(mode, time.Since(start), err)
		return nil, err
	}
	p.monitor.Start(q)

	var key cacheKey
	if p.cache != nil {
		key = cacheKey{fingerprint: q.Fingerprint()}
		if p.generation != nil {
			key.generation = p.generation()
		}
		if ids, ok := p.cache.Get(key); ok {
			p.metrics.CacheHit()
			ids = slices.Clone(ids)
			p.monitor.CacheHit(q, ids)
			p.monitor.Finish(q, ids, nil)
			p.metrics.ObserveQuery(mode, time.Since(start), nil)
			return ids, nil
		}
		p.metrics.CacheMiss()
	}

	ids, err := eval()
	p.metrics.ObserveQuery(mode, time.Since(start), err)
	p.monitor.Finish(q, ids, err)
	if err != nil {
		p.logger.Debug("query failed", "kind", q.Kind, "mode", mode, "error", err)
		return nil, err
	}
	if p.cache != nil {
		p.cache.Add(key, slices.Clone(ids))
	}
	p.logger.Debug("query executed", "kind", q.Kind, "mode", mode, "results", len(ids), "elapsed", time.Since(start))
	return ids, nil
}

func (p *Planner) evaluate(q *Query) ([]core.DocumentID, error) {
	if q.IsLeaf() {
		return p.leaf(q, func() ([]core.DocumentID, error) {
			return p.retriever.ComparisonRetrieval(q, nil)
		})
	}
	sets := make([][]core.DocumentID, len(q.Children))
	for i, child := range q.Children {
		ids, err := p.evaluate(child)
		if err != nil {
			return nil, err
		}
		sets[i] = ids
	}
	return p.combine(q, sets), nil
}

func (p *Planner) evaluateAsync(ctx context.Context, q *Query) ([]core.DocumentID, error) {
	if q.IsLeaf() {
		return p.leaf(q, func() ([]core.DocumentID, error) {
			return p.retriever.ComparisonRetrievalAsync(ctx, q, nil)
		})
	}
	sets := make([][]core.DocumentID, len(q.Children))
	g, ctx := errgroup.WithContext(ctx)
	for i, child := range q.Children {
		g.Go(func() error {
			ids, err := p.evaluateAsync(ctx, child)
			sets[i] = ids
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p.combine(q, sets), nil
}

// leaf dispatches a criterion. comparison runs comparison criteria so the
// sync and async paths share everything else.
func (p *Planner) leaf(q *Query, comparison func() ([]core.DocumentID, error)) ([]core.DocumentID, error) {
	var (
		ids []core.DocumentID
		err error
	)
	switch q.Kind {
	case KindIndex:
		ids, err = p.retriever.IndexRetrieval(q, nil)
	case KindComparison:
		ids, err = comparison()
	case KindCluster:
		ids, err = p.retriever.ClusterRetrieval(q)
	}
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []core.DocumentID{}
	}
	p.monitor.AfterLeaf(q, ids)
	return ids, nil
}

func (p *Planner) combine(q *Query, sets [][]core.DocumentID) []core.DocumentID {
	var ids []core.DocumentID
	switch q.Kind {
	case KindAnd:
		ids = and(sets)
	case KindOr:
		ids = or(sets)
	case KindNot:
		ids = not(sets[0], sets[1])
	}
	p.monitor.AfterCombine(q, ids)
	return ids
}
