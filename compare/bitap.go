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

package compare

import (
	"strings"
)

// maxBitapTermLength is the longest term the bit-parallel automaton can track
// in a single uint64 state word.
const maxBitapTermLength = 64

// Bitap reports how well term approximately occurs inside context, allowing up
// to maxErrors insertions, deletions or substitutions. It returns 0 when no such
// occurrence exists and Relevance(depth, distance) of the best occurrence
// otherwise. Matching is case-insensitive.
//
// The best occurrence is the one with the fewest errors. Among occurrences with
// the same number of errors the earliest one wins.
func Bitap(term, context string, maxErrors int) float64 {
	if maxErrors < 0 {
		maxErrors = 0
	}
	t := []rune(strings.ToUpper(term))
	c := []rune(strings.ToUpper(context))

	if len(t)-maxErrors > len(c) {
		return 0
	}
	if len(t) == 0 {
		if len(c) == 0 {
			return 0
		}
		return Relevance(0, 0)
	}
	if len(t) > maxBitapTermLength {
		return sellers(t, c, maxErrors)
	}

	masks := termMasks(t)
	finish := uint64(1) << (len(t) - 1)

	if maxErrors == 0 {
		var r uint64
		for i, ch := range c {
			r = (r<<1 | 1) & masks[ch]
			if r&finish != 0 {
				return Relevance(0, i-(len(t)-1))
			}
		}
		return 0
	}

	// Depth d starts with the first d term runes already deleted.
	prev := make([]uint64, maxErrors+1)
	next := make([]uint64, maxErrors+1)
	for d := range prev {
		prev[d] = uint64(1)<<min(d, len(t)) - 1
	}
	best := noMatch
	for i, ch := range c {
		step(prev, next, masks[ch])
		prev, next = next, prev

		// Shallowest depth that reached the terminal bit at this position.
		for depth := 0; depth < best.depth && depth <= maxErrors; depth++ {
			if prev[depth]&finish == 0 {
				continue
			}
			best = candidate{depth: depth, distance: max(0, i-(len(t)-1)-depth)}
			break
		}
		if best.depth == 0 {
			break
		}
	}

	if best == noMatch {
		return 0
	}
	return Relevance(best.depth, best.distance)
}

// step advances every depth of the automaton by one context character. Each
// depth reads only the previous snapshot and the already advanced shallower
// depth, so no state is overwritten while it is still needed.
func step(prev, next []uint64, mask uint64) {
	next[0] = (prev[0]<<1 | 1) & mask
	for d := 1; d < len(prev); d++ {
		substitution := prev[d-1]<<1 | 1
		insertion := prev[d-1]
		deletion := next[d-1]<<1 | 1
		next[d] = (prev[d]<<1|1)&mask | substitution | insertion | deletion
	}
}

// termMasks maps each rune of term to the set of positions where it occurs.
// Runes that never appear in term map to the zero mask.
func termMasks(term []rune) map[rune]uint64 {
	masks := make(map[rune]uint64, len(term))
	for i, r := range term {
		masks[r] |= 1 << i
	}
	return masks
}

type candidate struct {
	depth    int
	distance int
}

var noMatch = candidate{depth: int(^uint(0) >> 1), distance: -1}

// sellers is the dynamic-programming equivalent of the automaton for terms too
// long to fit in a state word. col[j] holds the fewest errors needed to match
// term[:j] ending at the current context position.
func sellers(term, context []rune, maxErrors int) float64 {
	m := len(term)
	col := make([]int, m+1)
	for j := range col {
		col[j] = j
	}
	best := noMatch
	for i, ch := range context {
		diag := col[0]
		col[0] = 0
		for j := 1; j <= m; j++ {
			cost := 1
			if term[j-1] == ch {
				cost = 0
			}
			up := col[j]
			col[j] = min(diag+cost, col[j]+1, col[j-1]+1)
			diag = up
		}
		if depth := col[m]; depth <= maxErrors && depth < best.depth {
			best = candidate{depth: depth, distance: max(0, i-(m-1)-depth)}
			if depth == 0 {
				break
			}
		}
	}
	if best == noMatch {
		return 0
	}
	return Relevance(best.depth, best.distance)
}
