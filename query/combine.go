package query

import "github.com/poiesic/haystack/core"

// and keeps the ids of the first set that appear in every other set.
func and(sets [][]core.DocumentID) []core.DocumentID {
	if len(sets) == 0 {
		return []core.DocumentID{}
	}
	counts := make(map[core.DocumentID]int)
	for _, set := range sets[1:] {
		for _, id := range dedupe(set) {
			counts[id]++
		}
	}
	want := len(sets) - 1
	out := []core.DocumentID{}
	for _, id := range dedupe(sets[0]) {
		if counts[id] == want {
			out = append(out, id)
		}
	}
	return out
}

// or returns every id once, in order of first appearance.
func or(sets [][]core.DocumentID) []core.DocumentID {
	seen := make(map[core.DocumentID]struct{})
	out := []core.DocumentID{}
	for _, set := range sets {
		for _, id := range set {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// not returns the ids of left that are absent from right.
func not(left, right []core.DocumentID) []core.DocumentID {
	exclude := make(map[core.DocumentID]struct{}, len(right))
	for _, id := range right {
		exclude[id] = struct{}{}
	}
	out := []core.DocumentID{}
	for _, id := range dedupe(left) {
		if _, ok := exclude[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []core.DocumentID) []core.DocumentID {
	seen := make(map[core.DocumentID]struct{}, len(ids))
	out := make([]core.DocumentID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
