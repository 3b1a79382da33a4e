// Package cluster defines the contract between the engine and cluster
// strategies used for cluster-based approximate retrieval.
package cluster

import (
	"github.com/poiesic/haystack/core"
	"github.com/poiesic/haystack/index"
)

// Cluster groups documents at build time and answers queries with the ids of
// the documents in the groups closest to a query document.
type Cluster interface {
	// ID names the cluster; query criteria reference clusters by ID.
	ID() string

	// Build groups the documents. Without an index the documents carry empty
	// token maps and statistics report -1 for token counts and lengths.
	Build(documents []index.IndexDocument, stats index.Statistics)

	// Evaluate returns the ids of documents related to the query document.
	Evaluate(query index.IndexDocument, options map[string]any) []core.DocumentID
}
