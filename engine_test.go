package haystack

import (
	"context"
	"strings"
	"testing"

	"github.com/poiesic/haystack/cluster"
	"github.com/poiesic/haystack/compare"
	"github.com/poiesic/haystack/core"
	"github.com/poiesic/haystack/index"
	"github.com/poiesic/haystack/metrics"
	"github.com/poiesic/haystack/preprocess"
	"github.com/poiesic/haystack/query"
	"github.com/poiesic/haystack/spelling"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func desserts() []any {
	return []any{
		map[string]any{"name": "Apple Pie", "tags": []any{"dessert", "baked"}},
		map[string]any{"name": "Apple Tart", "tags": []any{"dessert"}},
		map[string]any{"name": "Banana Split", "tags": []any{"dessert", "cold"}},
		map[string]any{"name": "Carrot Soup", "tags": []any{"savory"}},
	}
}

func newEngine(t *testing.T, opts ...ConfigOption) *Engine {
	t.Helper()
	e, err := New(WithConfig(NewConfig(opts...)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	require.NoError(t, e.SetDataset(desserts()))
	return e
}

func names(results []*SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Item.(map[string]any)["name"].(string)
	}
	return out
}

func originIndices(results []*SearchResult) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.OriginIndex
	}
	return out
}

func TestNew_Defaults(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, compare.DefaultStrategy, e.comparisonName)
	assert.Nil(t, e.Index())
	assert.Empty(t, e.Corpus())
	assert.Contains(t, e.ComparisonStrategies(), compare.StrategyBitap)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(WithConfig(NewConfig(WithLimit(-1))))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(WithConfig(NewConfig(WithComparison("nope"))))
	assert.ErrorIs(t, err, compare.ErrUnknownStrategy)
}

func TestSetDataset(t *testing.T) {
	e := newEngine(t)
	corpus := e.Corpus()
	require.Len(t, corpus, 4)

	for i, doc := range corpus {
		assert.Equal(t, i, doc.OriginIndex)
		if i > 0 {
			assert.Greater(t, doc.ID, corpus[i-1].ID)
		}
	}

	// Declarations are preprocessed; origin values are untouched
	decl := corpus[0].Declarations[0]
	assert.Equal(t, []string{"name"}, decl.Path)
	assert.Equal(t, "Apple Pie", decl.OriginValue)
	assert.Equal(t, "apple pie", decl.Value)
	assert.Equal(t, "tags", corpus[0].Declarations[1].NormalizedPath)

	t.Run("ids are never reused", func(t *testing.T) {
		last := corpus[len(corpus)-1].ID
		gen := e.Generation()
		require.NoError(t, e.SetDataset(desserts()))
		assert.Greater(t, e.Corpus()[0].ID, last)
		assert.Greater(t, e.Generation(), gen)
	})
}

func TestSearch(t *testing.T) {
	e := newEngine(t)

	results, err := e.Search("apple", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple Pie", "Apple Tart"}, names(results))
	assert.Equal(t, []string{"name"}, results[0].Path)
	assert.Equal(t, "Apple Pie", results[0].Value)
	assert.InDelta(t, 1.0, results[0].Relevance, 1e-9)
	assert.Equal(t, results[0].Relevance, results[0].ComparisonScore)

	t.Run("approximate", func(t *testing.T) {
		results, err := e.Search("banan splt", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Banana Split"}, names(results))
		assert.Less(t, results[0].Relevance, 1.0)
	})

	t.Run("no match", func(t *testing.T) {
		results, err := e.Search("zucchini", nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("limit stops the scan", func(t *testing.T) {
		results, err := e.Search("dessert", &SearchOptions{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, originIndices(results))
	})

	t.Run("filter query", func(t *testing.T) {
		e := newEngine(t, WithIndex("word"))
		results, err := e.Search("dessert", &SearchOptions{Filter: query.Index("banana", query.WithExact())})
		require.NoError(t, err)
		assert.Equal(t, []string{"Banana Split"}, names(results))
	})
}

func TestSearchAsyncMatchesSearch(t *testing.T) {
	e := newEngine(t, WithMaxThreads(2))
	for _, term := range []string{"apple", "dessert", "banan splt", "soup", "zucchini", ""} {
		t.Run(term, func(t *testing.T) {
			want, err := e.Search(term, nil)
			require.NoError(t, err)
			got, err := e.SearchAsync(context.Background(), term, nil)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	t.Run("with limit", func(t *testing.T) {
		opts := &SearchOptions{Limit: 1}
		want, err := e.Search("dessert", opts)
		require.NoError(t, err)
		got, err := e.SearchAsync(context.Background(), "dessert", opts)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestWeights(t *testing.T) {
	e := newEngine(t, WithComparison(compare.StrategyContains))
	byName := func(path []string, _ any) bool { return len(path) > 0 && path[0] == "name" }
	require.NoError(t, e.SetWeights(Weight{Match: byName, Value: 2}))

	for _, doc := range e.Corpus() {
		for _, decl := range doc.Declarations {
			if decl.NormalizedPath == "name" {
				assert.Equal(t, 2.0, decl.Weight)
				assert.Equal(t, 1.0, decl.NormalizedWeight)
			} else {
				assert.Equal(t, 1.0, decl.Weight)
				assert.Equal(t, 0.5, decl.NormalizedWeight)
			}
		}
	}

	results, err := e.Search("dessert", nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 0.5, results[0].Relevance)
	assert.Equal(t, 1.0, results[0].ComparisonScore)

	t.Run("negative weight is rejected and rolled back", func(t *testing.T) {
		err := e.SetWeights(Weight{Match: byName, Value: -1})
		assert.ErrorIs(t, err, core.ErrWeightOutOfRange)
		assert.Len(t, e.weights, 1)
	})

	t.Run("small weights normalize against 1", func(t *testing.T) {
		require.NoError(t, e.SetWeights(Weight{Match: byName, Value: 0.5}))
		assert.Equal(t, 0.5, e.Corpus()[0].Declarations[0].NormalizedWeight)
	})
}

func TestFilters(t *testing.T) {
	e := newEngine(t, WithComparison(compare.StrategyContains))
	require.NoError(t, e.SetFilters(func(path []string, _ any) bool { return path[0] == "name" }))

	results, err := e.Search("dessert", nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	for _, doc := range e.Corpus() {
		assert.Len(t, doc.Declarations, 1)
	}
}

func TestPreProcessors(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.RegisterComparison("caseSensitive", func(term, context string) float64 {
		if strings.Contains(context, term) {
			return 1
		}
		return 0
	}))
	require.NoError(t, e.SetComparison("caseSensitive"))

	results, err := e.Search("APPLE", nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	e.SetApplyPreProcessorsToTerm(false)
	results, err = e.Search("APPLE", nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, e.SetPreProcessors(preprocess.ToString, preprocess.ToUpperCase))
	results, err = e.Search("APPLE", nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSorting(t *testing.T) {
	e := newEngine(t, WithComparison(compare.StrategyContains))
	byOriginDesc := func(a, b *SearchResult) int { return b.OriginIndex - a.OriginIndex }
	e.SetSorting(byOriginDesc)

	results, err := e.Search("dessert", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, originIndices(results))

	e.SetLimit(1)
	results, err = e.Search("dessert", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, originIndices(results))
}

func TestAddAndRemoveItem(t *testing.T) {
	e := newEngine(t, WithIndex("word"))
	data := e.originData

	mango := map[string]any{"name": "Mango Lassi", "tags": []any{"drink"}}
	require.NoError(t, e.AddItem(mango))
	assert.Len(t, e.Corpus(), 5)

	results, err := e.Query(query.Index("mango", query.WithExact()), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 4, results[0].OriginIndex)

	t.Run("remove shifts later records", func(t *testing.T) {
		require.True(t, e.RemoveItem(data[0]))
		corpus := e.Corpus()
		require.Len(t, corpus, 4)
		assert.Equal(t, []int{0, 1, 2, 3}, []int{
			corpus[0].OriginIndex, corpus[1].OriginIndex, corpus[2].OriginIndex, corpus[3].OriginIndex,
		})

		results, err := e.Query(query.Index("apple", query.WithExact()), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Apple Tart"}, names(results))
		assert.Equal(t, 0, results[0].OriginIndex)

		results, err = e.Search("mango", nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, 3, results[0].OriginIndex)
	})

	t.Run("unknown items are ignored", func(t *testing.T) {
		assert.False(t, e.RemoveItem(map[string]any{"name": "Apple Tart"}))
		assert.False(t, e.RemoveAt(-1))
		assert.False(t, e.RemoveAt(99))
		assert.Len(t, e.Corpus(), 4)
	})
}

func TestSameItem(t *testing.T) {
	m := map[string]any{"a": 1}
	s := []int{1, 2}
	type record struct{ Name string }
	type loose struct{ V any }

	assert.True(t, sameItem("a", "a"))
	assert.False(t, sameItem("a", "b"))
	assert.False(t, sameItem(1, int64(1)))
	assert.True(t, sameItem(m, m))
	assert.False(t, sameItem(m, map[string]any{"a": 1}))
	assert.True(t, sameItem(s, s))
	assert.False(t, sameItem(s, s[:1]))
	assert.True(t, sameItem(record{"x"}, record{"x"}))
	assert.True(t, sameItem(nil, nil))
	assert.False(t, sameItem(loose{[]int{1}}, loose{[]int{1}}))
}

func TestFullText(t *testing.T) {
	t.Run("requires an index", func(t *testing.T) {
		e := newEngine(t)
		e.SetFullTextScoring(index.CosineSimilarity)
		_, err := e.FullText("apple", nil)
		assert.ErrorIs(t, err, ErrNoIndexStrategy)
	})

	t.Run("requires a scoring function", func(t *testing.T) {
		e := newEngine(t, WithIndex("word"))
		_, err := e.FullText("apple", nil)
		assert.ErrorIs(t, err, ErrNoScoringStrategy)
	})

	e := newEngine(t, WithIndex("word"))
	e.SetFullTextScoring(index.CosineSimilarity)

	results, err := e.FullText("Apple Pie", &SearchOptions{Exact: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"Apple Pie", "Apple Tart"}, names(results))
	assert.Greater(t, results[0].Relevance, results[1].Relevance)
	assert.Nil(t, results[0].Path)

	t.Run("field and limit", func(t *testing.T) {
		results, err := e.FullText("dessert", &SearchOptions{Exact: true, Field: "tags", Limit: 2})
		require.NoError(t, err)
		assert.Len(t, results, 2)

		results, err = e.FullText("dessert", &SearchOptions{Exact: true, Field: "name"})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("async agrees", func(t *testing.T) {
		opts := &SearchOptions{Filter: query.Comparison("tart", query.WithStrategy(compare.StrategyContains))}
		want, err := e.FullText("apple", opts)
		require.NoError(t, err)
		got, err := e.FullTextAsync(context.Background(), "apple", opts)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, []string{"Apple Tart"}, names(got))
	})
}

func TestQuery(t *testing.T) {
	e := newEngine(t, WithIndex("word"), WithMaxThreads(2))

	tests := []struct {
		name  string
		query *query.Query
		want  []string
	}{
		{"exact index", query.Index("apple", query.WithExact()), []string{"Apple Pie", "Apple Tart"}},
		{"fuzzy index", query.Index("aple"), []string{"Apple Pie", "Apple Tart"}},
		{"comparison in field", query.Comparison("dessert", query.WithField("tags")), []string{"Apple Pie", "Apple Tart", "Banana Split"}},
		{"comparison outside field", query.Comparison("dessert", query.WithField("name")), []string{}},
		{"comparison with strategy", query.Comparison("apple t", query.WithStrategy(compare.StrategyStartsWith)), []string{"Apple Tart"}},
		{"not", query.Not(query.Index("dessert", query.WithExact()), query.Index("apple", query.WithExact())), []string{"Banana Split"}},
		{"and", query.And(query.Comparison("dessert"), query.Index("pie", query.WithExact())), []string{"Apple Pie"}},
		{"or", query.Or(query.Index("soup", query.WithExact()), query.Comparison("banana")), []string{"Banana Split", "Carrot Soup"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := e.Query(tt.query, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(results))
			for _, r := range results {
				assert.Equal(t, 1.0, r.Relevance)
			}

			async, err := e.QueryAsync(context.Background(), tt.query, nil)
			require.NoError(t, err)
			assert.Equal(t, results, async)
		})
	}

	t.Run("limit", func(t *testing.T) {
		results, err := e.Query(query.Index("dessert", query.WithExact()), &SearchOptions{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestQuery_Errors(t *testing.T) {
	e := newEngine(t)

	_, err := e.Query(query.Index("apple"), nil)
	assert.ErrorIs(t, err, ErrNoIndexStrategy)

	_, err = e.Query(query.Cluster("missing"), nil)
	assert.ErrorIs(t, err, query.ErrNoSuchCluster)

	_, err = e.QueryAsync(context.Background(), query.Comparison("x", query.WithStrategy("nope")), nil)
	assert.ErrorIs(t, err, compare.ErrUnknownStrategy)
}

func TestQueryCacheFollowsCorpus(t *testing.T) {
	e := newEngine(t, WithIndex("word"), WithCacheSize(8))
	q := query.Index("mango", query.WithExact())

	results, err := e.Query(q, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, e.AddItem(map[string]any{"name": "Mango"}))
	results, err = e.Query(q, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDocumentIDsAreUniqueAcrossEngines(t *testing.T) {
	a := newEngine(t)
	b := newEngine(t)

	seen := make(map[core.DocumentID]bool)
	for _, doc := range append(a.Corpus(), b.Corpus()...) {
		assert.False(t, seen[doc.ID], "id %d handed out twice", doc.ID)
		seen[doc.ID] = true
	}
	assert.Len(t, seen, 8)
}

func TestQueryCacheFollowsComparison(t *testing.T) {
	e := newEngine(t, WithCacheSize(8))
	q := query.Comparison("aple")

	results, err := e.Query(q, nil)
	require.NoError(t, err)
	assert.Contains(t, names(results), "Apple Pie")
	assert.Contains(t, names(results), "Apple Tart")

	require.NoError(t, e.SetComparison(compare.StrategyExact))
	results, err = e.Query(q, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryCacheFollowsTermPreprocessing(t *testing.T) {
	e := newEngine(t, WithCacheSize(8))
	dashes := func(v any) any { return strings.ReplaceAll(core.ValueText(v), "-", " ") }
	require.NoError(t, e.SetPreProcessors(preprocess.ToString, dashes, preprocess.ToLowerCase))
	q := query.Comparison("apple-pie", query.WithStrategy(compare.StrategyExact))

	results, err := e.Query(q, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple Pie"}, names(results))

	e.SetApplyPreProcessorsToTerm(false)
	results, err = e.Query(q, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClusters(t *testing.T) {
	t.Run("with index", func(t *testing.T) {
		e := newEngine(t, WithIndex("word"))
		e.SetClusterStrategy(false, cluster.NewTokenCluster("tokens", 1))

		results, err := e.Query(query.Cluster("tokens", query.WithValue("Apple")), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Apple Pie", "Apple Tart"}, names(results))

		results, err = e.Query(query.Cluster("tokens"), nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("without index", func(t *testing.T) {
		e := newEngine(t)
		recorder := &recordingCluster{id: "rec"}
		e.SetClusterStrategy(false, recorder)

		assert.Len(t, recorder.documents, 4)
		assert.Equal(t, -1, recorder.stats.NumberOfTokens)
		assert.Equal(t, -1.0, recorder.stats.AverageDocumentLength)
		assert.Equal(t, 4, recorder.stats.NumberOfDocuments)

		_, err := e.Query(query.Cluster("rec", query.WithValue("Apple"), query.WithOptions(map[string]any{"k": 1})), nil)
		require.NoError(t, err)
		assert.Equal(t, "apple", recorder.query.Document.Declarations[0].Value)
		assert.Empty(t, recorder.query.TokenMap)
		assert.Equal(t, map[string]any{"k": 1}, recorder.options)
	})
}

type recordingCluster struct {
	id        string
	documents []index.IndexDocument
	stats     index.Statistics
	query     index.IndexDocument
	options   map[string]any
}

func (c *recordingCluster) ID() string { return c.id }
func (c *recordingCluster) Build(documents []index.IndexDocument, stats index.Statistics) {
	c.documents, c.stats = documents, stats
}
func (c *recordingCluster) Evaluate(q index.IndexDocument, options map[string]any) []core.DocumentID {
	c.query, c.options = q, options
	return nil
}

func TestCheckSpelling(t *testing.T) {
	e := newEngine(t)

	_, err := e.CheckSpelling("aple", "")
	assert.ErrorIs(t, err, ErrNoSpellingStrategy)

	e.SetSpellingStrategy(false, spelling.NewEditDistance("edit", 2))
	assert.Equal(t, 2, e.allWords["apple"].Count)
	assert.Equal(t, 3, e.allWords["dessert"].Count)

	result, err := e.CheckSpelling("aple pie with banan", "")
	require.NoError(t, err)
	assert.Equal(t, "apple pie with banana", result.Result)
	assert.Equal(t, []spelling.Correction{
		{Word: "aple", Suggestion: "apple"},
		{Word: "banan", Suggestion: "banana"},
	}, result.Corrections)

	result, err = e.CheckSpelling("apple pie", "edit")
	require.NoError(t, err)
	assert.Empty(t, result.Corrections)
	assert.Equal(t, "apple pie", result.Result)

	_, err = e.CheckSpelling("aple", "other")
	assert.ErrorIs(t, err, ErrNoSuchSpeller)

	t.Run("capitalized words are corrected", func(t *testing.T) {
		result, err := e.CheckSpelling("Aple Pie", "")
		require.NoError(t, err)
		assert.Equal(t, "apple pie", result.Result)
		assert.Equal(t, []spelling.Correction{{Word: "aple", Suggestion: "apple"}}, result.Corrections)
	})

	t.Run("only whole words are replaced", func(t *testing.T) {
		result, err := e.CheckSpelling("tar tart", "")
		require.NoError(t, err)
		assert.Equal(t, "tart tart", result.Result)
		assert.Equal(t, []spelling.Correction{{Word: "tar", Suggestion: "tart"}}, result.Corrections)
	})
}

func TestMetricsAndClose(t *testing.T) {
	m, err := metrics.New(nil)
	require.NoError(t, err)
	e, err := New(WithConfig(NewConfig(WithIndex("word"))), WithMetrics(m))
	require.NoError(t, err)
	require.NoError(t, e.SetDataset(desserts()))

	assert.Equal(t, 4.0, testutil.ToFloat64(m.IndexedDocuments))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.IndexBuildsTotal), 1.0)

	_, err = e.QueryAsync(context.Background(), query.Comparison("apple"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("async", metrics.OutcomeOK)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues(compare.StrategyBitap, metrics.OutcomeOK)))

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	_, err = e.SearchAsync(context.Background(), "apple", nil)
	assert.ErrorIs(t, err, ErrEngineClosed)

	// Synchronous paths keep working
	results, err := e.Search("apple", nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
