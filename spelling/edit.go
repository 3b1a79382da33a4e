package spelling

import "strings"

// DefaultMaxDistance is the edit distance budget of NewEditDistance when none is given.
const DefaultMaxDistance = 2

// EditDistance suggests the corpus word with the smallest Levenshtein
// distance to the misspelled word. Ties go to the more frequent word, then to
// the lexically smaller one.
type EditDistance struct {
	id          string
	maxDistance int
	words       map[string]*WordMeta
}

var _ Speller = (*EditDistance)(nil)

// NewEditDistance creates a speller. A maxDistance below 1 uses DefaultMaxDistance.
func NewEditDistance(id string, maxDistance int) *EditDistance {
	if maxDistance < 1 {
		maxDistance = DefaultMaxDistance
	}
	return &EditDistance{id: id, maxDistance: maxDistance}
}

func (s *EditDistance) ID() string { return s.id }

func (s *EditDistance) Build(words map[string]*WordMeta) {
	s.words = words
}

func (s *EditDistance) Evaluate(word string) string {
	word = strings.ToLower(word)
	target := []rune(word)
	best, bestDistance, bestCount := "", s.maxDistance+1, 0
	for candidate, meta := range s.words {
		c := []rune(candidate)
		if abs(len(c)-len(target)) > s.maxDistance {
			continue
		}
		d := levenshtein(target, c)
		count := 0
		if meta != nil {
			count = meta.Count
		}
		switch {
		case d < bestDistance,
			d == bestDistance && count > bestCount,
			d == bestDistance && count == bestCount && candidate < best:
			best, bestDistance, bestCount = candidate, d, count
		}
	}
	if best == word {
		return ""
	}
	return best
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
