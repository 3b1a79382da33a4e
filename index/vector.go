package index

import (
	"math"

	"github.com/poiesic/haystack/core"
)

// SparseVector maps tokens to weights. Zero entries are omitted.
type SparseVector map[string]float64

// Dot returns the dot product of v and other.
func (v SparseVector) Dot(other SparseVector) float64 {
	small, large := v, other
	if len(small) > len(large) {
		small, large = large, small
	}
	var sum float64
	for token, w := range small {
		sum += w * large[token]
	}
	return sum
}

// Norm returns the Euclidean length of v.
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// ScoringFunc scores a document vector against a query vector for full-text search.
type ScoringFunc func(query, document SparseVector) float64

// CosineSimilarity returns the cosine of the angle between two sparse vectors,
// or 0 when either is empty.
func CosineSimilarity(query, document SparseVector) float64 {
	qn, dn := query.Norm(), document.Norm()
	if qn == 0 || dn == 0 {
		return 0
	}
	return query.Dot(document) / (qn * dn)
}

// IndexDocument is the index's view of one document.
type IndexDocument struct {
	Document *core.Document
	TokenMap SparseVector
	Length   int // Number of tokens emitted for the document
}

// VectorPair couples a query vector with one document's vector for scoring.
type VectorPair struct {
	Document       *core.Document
	QueryVector    SparseVector
	DocumentVector SparseVector
}

// Statistics are corpus-wide aggregates computed by the index.
type Statistics struct {
	NumberOfDocuments     int
	NumberOfTokens        int // Distinct tokens in the index
	AverageDocumentLength float64
}
