package cluster

import (
	"cmp"
	"slices"

	"github.com/poiesic/haystack/core"
	"github.com/poiesic/haystack/index"
)

// OptionMinShared overrides TokenCluster's minimum shared token count per
// query. It accepts an int or a float64 (as decoded from JSON).
const OptionMinShared = "minShared"

// TokenCluster groups documents into buckets keyed by index token. A query is
// answered with the documents sharing at least minShared tokens with it,
// most shared first. It needs an index; without one every bucket is empty.
type TokenCluster struct {
	id        string
	minShared int
	buckets   map[string][]core.DocumentID
}

var _ Cluster = (*TokenCluster)(nil)

// NewTokenCluster creates a token cluster. minShared below 1 is raised to 1.
func NewTokenCluster(id string, minShared int) *TokenCluster {
	return &TokenCluster{id: id, minShared: max(1, minShared), buckets: map[string][]core.DocumentID{}}
}

func (c *TokenCluster) ID() string { return c.id }

func (c *TokenCluster) Build(documents []index.IndexDocument, _ index.Statistics) {
	c.buckets = make(map[string][]core.DocumentID)
	for _, doc := range documents {
		for token := range doc.TokenMap {
			c.buckets[token] = append(c.buckets[token], doc.Document.ID)
		}
	}
}

func (c *TokenCluster) Evaluate(query index.IndexDocument, options map[string]any) []core.DocumentID {
	minShared := c.minShared
	switch v := options[OptionMinShared].(type) {
	case int:
		minShared = max(1, v)
	case float64:
		minShared = max(1, int(v))
	}

	shared := make(map[core.DocumentID]int)
	for token := range query.TokenMap {
		for _, id := range c.buckets[token] {
			shared[id]++
		}
	}
	out := make([]core.DocumentID, 0, len(shared))
	for id, n := range shared {
		if n >= minShared {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, func(a, b core.DocumentID) int {
		if c := cmp.Compare(shared[b], shared[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return out
}
