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
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/haystack/cluster"
	"github.com/poiesic/haystack/compare"
	"github.com/poiesic/haystack/core"
	"github.com/poiesic/haystack/extract"
	"github.com/poiesic/haystack/index"
	"github.com/poiesic/haystack/metrics"
	"github.com/poiesic/haystack/preprocess"
	"github.com/poiesic/haystack/query"
	"github.com/poiesic/haystack/scheduler"
	"github.com/poiesic/haystack/spelling"
)

// Filter decides whether a declaration is searchable.
type Filter func(path []string, originValue any) bool

// Weight assigns Value to every declaration Match accepts. The first matching
// weight wins; declarations no weight matches get 1.
type Weight struct {
	Match func(path []string, originValue any) bool
	Value float64
}

// Engine owns a dataset, the corpus extracted from it and the strategies used
// to search that corpus.
type Engine struct {
	cfg      *Config
	registry *compare.Registry

	comparisonName string
	comparison     compare.Func
	extraction     extract.Func
	preprocessors  []preprocess.Func
	filters        []Filter
	weights        []Weight
	sorting        []SortFunc
	scoring        index.ScoringFunc
	limit          int
	applyToTerm    bool

	originData []any
	corpus     []*core.Document
	generation atomic.Uint64

	index    *index.Index
	clusters []cluster.Cluster
	spellers []spelling.Speller
	allWords map[string]*spelling.WordMeta

	planner *query.Planner

	schedMu       sync.Mutex
	sched         *scheduler.Scheduler
	ownsScheduler bool
	closed        bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

var _ query.Retriever = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine) error

// WithConfig sets the engine configuration.
// Default is DefaultConfig().
func WithConfig(cfg *Config) Option {
	return func(e *Engine) error {
		if cfg == nil {
			cfg = DefaultConfig()
		}
		e.cfg = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithMetrics reports query, scheduler and index activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) error {
		e.metrics = m
		return nil
	}
}

// WithScheduler runs async comparisons on s instead of a scheduler owned by
// the engine. The engine does not release a shared scheduler on Close.
// Engines sharing a scheduler must agree on their comparison strategies.
func WithScheduler(s *scheduler.Scheduler) Option {
	return func(e *Engine) error {
		e.sched = s
		e.ownsScheduler = false
		return nil
	}
}

// New creates an empty engine. Load data with SetDataset or AddItem.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:           DefaultConfig(),
		registry:      compare.NewRegistry(),
		extraction:    extract.ByValue,
		preprocessors: preprocess.Defaults(),
		sorting:       []SortFunc{RelevanceDescending},
		allWords:      map[string]*spelling.WordMeta{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := e.SetComparison(e.cfg.Comparison); err != nil {
		return nil, err
	}
	e.limit = e.cfg.Limit
	e.applyToTerm = e.cfg.ApplyPreProcessorsToTerm

	plannerOpts := []query.Option{query.WithLogger(e.logger), query.WithMetrics(e.metrics)}
	if e.cfg.CacheSize > 0 {
		plannerOpts = append(plannerOpts, query.WithCache(e.cfg.CacheSize, e.generation.Load))
	}
	planner, err := query.NewPlanner(e, plannerOpts...)
	if err != nil {
		return nil, err
	}
	e.planner = planner

	if e.cfg.Index.Enable {
		indexOpts, err := e.cfg.indexOptions()
		if err != nil {
			return nil, err
		}
		if err := e.SetIndexStrategy(false, indexOpts...); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Close releases the engine's scheduler. Async operations fail afterwards.
func (e *Engine) Close() error {
	e.schedMu.Lock()
	defer e.schedMu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.ownsScheduler && e.sched != nil {
		e.sched.Release()
	}
	return nil
}

// Corpus returns the documents currently searched, in corpus order.
func (e *Engine) Corpus() []*core.Document {
	return slices.Clone(e.corpus)
}

// Index returns the inverted index, or nil when none is configured.
func (e *Engine) Index() *index.Index {
	return e.index
}

// Generation changes whenever the corpus or the index changes.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// SetDataset replaces the dataset and re-extracts the corpus. Documents get
// new ids.
func (e *Engine) SetDataset(items []any) error {
	e.originData = slices.Clone(items)
	return e.PrepareDataset()
}

// PrepareDataset extracts, filters, weights and preprocesses the dataset into
// a new corpus and rebuilds every configured strategy over it. On error the
// previous corpus is kept.
func (e *Engine) PrepareDataset() error {
	start := time.Now()
	maxWeight := e.maxWeight()
	corpus := make([]*core.Document, 0, len(e.originData))
	for i, item := range e.originData {
		docs, err := e.extractDocuments(item, i, maxWeight)
		if err != nil {
			return err
		}
		corpus = append(corpus, docs...)
	}
	e.corpus = corpus
	e.logger.Debug("dataset prepared",
		"records", len(e.originData),
		"documents", len(corpus),
		"duration", time.Since(start))
	e.rebuild()
	return nil
}

func (e *Engine) rebuild() {
	e.generation.Add(1)
	if e.index != nil {
		e.BuildIndex()
	}
	if len(e.clusters) > 0 {
		e.BuildClusters()
	}
	if len(e.spellers) > 0 {
		e.BuildSpellers()
	}
}

// AddItem appends a record to the dataset and indexes its documents.
// Existing documents keep their ids and origin indices. Clusters and spellers
// are not rebuilt.
func (e *Engine) AddItem(item any) error {
	docs, err := e.extractDocuments(item, len(e.originData), e.maxWeight())
	if err != nil {
		return err
	}
	e.originData = append(e.originData, item)
	e.corpus = append(e.corpus, docs...)
	if e.index != nil {
		for _, doc := range docs {
			e.index.AddDocument(doc)
		}
		e.metrics.SetIndexedDocuments(len(e.corpus))
	}
	e.generation.Add(1)
	return nil
}

// RemoveItem removes the first record identical to item. It reports whether
// a record was removed.
func (e *Engine) RemoveItem(item any) bool {
	for i, candidate := range e.originData {
		if sameItem(candidate, item) {
			return e.RemoveAt(i)
		}
	}
	return false
}

// RemoveAt removes the record at originIndex and its documents. Documents of
// later records move down one origin index but keep their ids.
func (e *Engine) RemoveAt(originIndex int) bool {
	if originIndex < 0 || originIndex >= len(e.originData) {
		return false
	}
	e.originData = slices.Delete(e.originData, originIndex, originIndex+1)

	kept := e.corpus[:0]
	for _, doc := range e.corpus {
		switch {
		case doc.OriginIndex == originIndex:
			if e.index != nil {
				e.index.RemoveDocument(doc)
			}
		case doc.OriginIndex > originIndex:
			doc.OriginIndex--
			kept = append(kept, doc)
		default:
			kept = append(kept, doc)
		}
	}
	clear(e.corpus[len(kept):])
	e.corpus = kept
	if e.index != nil {
		e.metrics.SetIndexedDocuments(len(e.corpus))
	}
	e.generation.Add(1)
	return true
}

// sameItem compares records by identity where Go allows it: comparable
// values by ==, maps, slices and funcs by their underlying pointer.
func sameItem(a, b any) (same bool) {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	if ta.Comparable() {
		// Interface fields may still hold incomparable values
		defer func() {
			if recover() != nil {
				same = false
			}
		}()
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	return false
}

func (e *Engine) extractDocuments(item any, originIndex int, maxWeight float64) ([]*core.Document, error) {
	var docs []*core.Document
	for _, decls := range e.extraction(item) {
		doc := core.NewDocument(core.NextID(), item, originIndex, e.processDeclarations(decls, maxWeight))
		if err := core.ValidateDocument(doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// processDeclarations applies filters, weights and preprocessors.
func (e *Engine) processDeclarations(decls []*core.Declaration, maxWeight float64) []*core.Declaration {
	out := make([]*core.Declaration, 0, len(decls))
	for _, decl := range decls {
		if !e.accept(decl) {
			continue
		}
		if len(e.weights) > 0 {
			decl.Weight = 1
			for _, w := range e.weights {
				if w.Match != nil && w.Match(decl.Path, decl.OriginValue) {
					decl.Weight = w.Value
					break
				}
			}
			decl.NormalizedWeight = decl.Weight / maxWeight
		}
		decl.Value = preprocess.Apply(decl.Value, e.preprocessors)
		out = append(out, decl)
	}
	return out
}

func (e *Engine) accept(decl *core.Declaration) bool {
	for _, f := range e.filters {
		if !f(decl.Path, decl.OriginValue) {
			return false
		}
	}
	return true
}

func (e *Engine) maxWeight() float64 {
	m := 1.0
	for _, w := range e.weights {
		m = max(m, w.Value)
	}
	return m
}

// SetFilters replaces the declaration filters and re-prepares the dataset.
func (e *Engine) SetFilters(filters ...Filter) error {
	prev := e.filters
	e.filters = filters
	if err := e.PrepareDataset(); err != nil {
		e.filters = prev
		return err
	}
	return nil
}

// SetWeights replaces the weights and re-prepares the dataset. Weights are
// normalized against the largest weight, or 1 if all are smaller.
func (e *Engine) SetWeights(weights ...Weight) error {
	prev := e.weights
	e.weights = weights
	if err := e.PrepareDataset(); err != nil {
		e.weights = prev
		return err
	}
	return nil
}

// SetPreProcessors replaces the preprocessors and re-prepares the dataset.
// Passing none disables preprocessing.
func (e *Engine) SetPreProcessors(processors ...preprocess.Func) error {
	prev := e.preprocessors
	e.preprocessors = processors
	if err := e.PrepareDataset(); err != nil {
		e.preprocessors = prev
		return err
	}
	return nil
}

// SetExtraction replaces the extraction strategy and re-prepares the
// dataset. A nil fn restores extract.ByValue.
func (e *Engine) SetExtraction(fn extract.Func) error {
	if fn == nil {
		fn = extract.ByValue
	}
	prev := e.extraction
	e.extraction = fn
	if err := e.PrepareDataset(); err != nil {
		e.extraction = prev
		return err
	}
	return nil
}

// RegisterComparison adds a named comparison strategy usable by SetComparison
// and by comparison criteria.
func (e *Engine) RegisterComparison(name string, fn compare.Func) error {
	return e.registry.Register(name, fn)
}

// SetComparison selects the default comparison strategy by name.
func (e *Engine) SetComparison(name string) error {
	fn, err := e.registry.Lookup(name)
	if err != nil {
		return err
	}
	e.comparisonName = name
	e.comparison = fn
	e.generation.Add(1)
	return nil
}

// ComparisonStrategies returns the names of all registered comparison strategies.
func (e *Engine) ComparisonStrategies() []string {
	return e.registry.Names()
}

// SetSorting replaces the sort order. Results are ordered by the first
// function that tells two results apart. Passing none keeps corpus order.
func (e *Engine) SetSorting(sorting ...SortFunc) {
	e.sorting = sorting
}

// SetLimit caps the number of results. Zero means no limit.
func (e *Engine) SetLimit(limit int) {
	e.limit = max(0, limit)
}

// SetApplyPreProcessorsToTerm controls whether search terms are preprocessed.
func (e *Engine) SetApplyPreProcessorsToTerm(apply bool) {
	e.applyToTerm = apply
	e.generation.Add(1)
}

// SetFullTextScoring sets the scoring function used by FullText.
func (e *Engine) SetFullTextScoring(fn index.ScoringFunc) {
	e.scoring = fn
}

// SetIndexStrategy replaces the inverted index. The index is built unless
// doNotBuild is set.
func (e *Engine) SetIndexStrategy(doNotBuild bool, opts ...index.Option) error {
	ix, err := index.New(e.documents, append([]index.Option{index.WithLogger(e.logger)}, opts...)...)
	if err != nil {
		return err
	}
	e.index = ix
	e.generation.Add(1)
	if !doNotBuild {
		e.BuildIndex()
	}
	return nil
}

func (e *Engine) documents() []*core.Document {
	return e.corpus
}

// BuildIndex rebuilds the index over the current corpus.
func (e *Engine) BuildIndex() {
	if e.index == nil {
		return
	}
	e.index.Build()
	e.metrics.IndexBuilt(len(e.corpus))
	e.generation.Add(1)
}

// SetClusterStrategy replaces the clusters. They are built unless doNotBuild
// is set.
func (e *Engine) SetClusterStrategy(doNotBuild bool, clusters ...cluster.Cluster) {
	e.clusters = clusters
	e.generation.Add(1)
	if !doNotBuild {
		e.BuildClusters()
	}
}

// BuildClusters rebuilds every cluster. Without an index the clusters see
// documents with empty token maps and statistics of -1.
func (e *Engine) BuildClusters() {
	var (
		docs  []index.IndexDocument
		stats index.Statistics
	)
	if e.index != nil {
		docs = e.index.GetAllIndexDocuments()
		stats = e.index.GetStatistics()
	} else {
		docs = make([]index.IndexDocument, len(e.corpus))
		for i, doc := range e.corpus {
			docs[i] = index.IndexDocument{Document: doc, TokenMap: index.SparseVector{}}
		}
		stats = index.Statistics{
			NumberOfDocuments:     len(e.corpus),
			NumberOfTokens:        -1,
			AverageDocumentLength: -1,
		}
	}
	for _, c := range e.clusters {
		c.Build(docs, stats)
	}
	e.generation.Add(1)
	e.logger.Debug("clusters built", "clusters", len(e.clusters), "documents", len(docs))
}

// SetSpellingStrategy replaces the spellers. They are built unless
// doNotBuild is set.
func (e *Engine) SetSpellingStrategy(doNotBuild bool, spellers ...spelling.Speller) {
	e.spellers = spellers
	if !doNotBuild {
		e.BuildSpellers()
	}
}

// BuildSpellers collects the corpus vocabulary from string values and hands
// it to every speller.
func (e *Engine) BuildSpellers() {
	words := make(map[string]*spelling.WordMeta)
	for _, doc := range e.corpus {
		for _, decl := range doc.Declarations {
			s, ok := decl.OriginValue.(string)
			if !ok {
				continue
			}
			for _, word := range splitWords(s) {
				meta, ok := words[word]
				if !ok {
					meta = &spelling.WordMeta{}
					words[word] = meta
				}
				meta.Count++
			}
		}
	}
	e.allWords = words
	for _, s := range e.spellers {
		s.Build(words)
	}
	e.logger.Debug("spellers built", "spellers", len(e.spellers), "words", len(words))
}

func splitWords(s string) []string {
	var out []string
	for _, word := range strings.Split(preprocess.ScrubString(s), " ") {
		if word != "" {
			out = append(out, strings.ToLower(word))
		}
	}
	return out
}

// CheckSpelling suggests corrections for the words of value missing from the
// corpus vocabulary. With a non-empty id only that speller is consulted;
// otherwise the first speller with a suggestion wins. The result holds the
// preprocessed words of value, corrected in place and joined by spaces.
func (e *Engine) CheckSpelling(value string, id string) (*spelling.Result, error) {
	if len(e.spellers) == 0 {
		return nil, ErrNoSpellingStrategy
	}
	spellers := e.spellers
	if id != "" {
		spellers = slices.DeleteFunc(slices.Clone(spellers), func(s spelling.Speller) bool {
			return s.ID() != id
		})
		if len(spellers) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchSpeller, id)
		}
	}

	result := &spelling.Result{Corrections: []spelling.Correction{}}
	words := splitWords(core.ValueText(preprocess.Apply(value, e.preprocessors)))
	for i, word := range words {
		if _, ok := e.allWords[word]; ok {
			continue
		}
		for _, s := range spellers {
			if suggestion := s.Evaluate(word); suggestion != "" {
				result.Corrections = append(result.Corrections, spelling.Correction{Word: word, Suggestion: suggestion})
				words[i] = suggestion
				break
			}
		}
	}
	result.Result = strings.Join(words, " ")
	return result, nil
}

// Terminate cancels the queued async comparisons of the named strategy and
// drops its idle execution contexts. Running comparisons finish.
func (e *Engine) Terminate(strategy string) {
	e.schedMu.Lock()
	s := e.sched
	e.schedMu.Unlock()
	if s != nil {
		s.Terminate(strategy)
	}
}

// scheduler returns the scheduler for async comparisons, creating it on first
// use, with strategy registered.
func (e *Engine) scheduler(strategy string) (*scheduler.Scheduler, error) {
	e.schedMu.Lock()
	defer e.schedMu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	if e.sched == nil {
		opts := append(e.cfg.schedulerOptions(),
			scheduler.WithLogger(e.logger),
			scheduler.WithMetrics(e.metrics))
		s, err := scheduler.New(opts...)
		if err != nil {
			return nil, err
		}
		e.sched = s
		e.ownsScheduler = true
	}
	if !e.sched.Registered(strategy) {
		registry := e.registry
		err := e.sched.Register(strategy, func() (scheduler.Executor, error) {
			return compare.NewExecutor(registry, strategy)
		})
		if err != nil && !errors.Is(err, scheduler.ErrAlreadyRegistered) {
			return nil, err
		}
	}
	return e.sched, nil
}
