package haystack

import (
	"cmp"
	"slices"
)

// SearchResult is one matched record.
type SearchResult struct {
	Item        any      // The source record
	OriginIndex int      // Position of Item in the dataset
	Path        []string // Path of the best matching declaration, if any
	Value       any      // Origin value of the best matching declaration, if any

	// Relevance is the comparison score scaled by the declaration weight for
	// Search, the full-text score for FullText and 1 for Query.
	Relevance float64

	// ComparisonScore is the raw score of the comparison or scoring function.
	ComparisonScore float64
}

// SortFunc orders two results the way cmp.Compare does.
type SortFunc func(a, b *SearchResult) int

// RelevanceDescending puts the most relevant results first.
func RelevanceDescending(a, b *SearchResult) int {
	return cmp.Compare(b.Relevance, a.Relevance)
}

// RelevanceAscending puts the least relevant results first.
func RelevanceAscending(a, b *SearchResult) int {
	return cmp.Compare(a.Relevance, b.Relevance)
}

// ComparisonScoreDescending puts the highest raw scores first.
func ComparisonScoreDescending(a, b *SearchResult) int {
	return cmp.Compare(b.ComparisonScore, a.ComparisonScore)
}

// ComparisonScoreAscending puts the lowest raw scores first.
func ComparisonScoreAscending(a, b *SearchResult) int {
	return cmp.Compare(a.ComparisonScore, b.ComparisonScore)
}

// sortResults orders results by the first sort function that tells them
// apart. Equal results keep their corpus order.
func sortResults(results []*SearchResult, sorting []SortFunc) {
	if len(sorting) == 0 {
		return
	}
	slices.SortStableFunc(results, func(a, b *SearchResult) int {
		for _, fn := range sorting {
			if c := fn(a, b); c != 0 {
				return c
			}
		}
		return 0
	})
}
