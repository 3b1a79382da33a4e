package query

import "github.com/poiesic/haystack/core"

// Monitor provides hooks to observe query evaluation.
// ExecuteQueryAsync evaluates siblings concurrently, so implementations used
// with it must be safe for concurrent use.
type Monitor interface {
	Start(q *Query)
	AfterLeaf(q *Query, ids []core.DocumentID)
	AfterCombine(q *Query, ids []core.DocumentID)
	CacheHit(q *Query, ids []core.DocumentID)
	Finish(q *Query, ids []core.DocumentID, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ *Query)                                {}
func (n *noopMonitor) AfterLeaf(_ *Query, _ []core.DocumentID)       {}
func (n *noopMonitor) AfterCombine(_ *Query, _ []core.DocumentID)    {}
func (n *noopMonitor) CacheHit(_ *Query, _ []core.DocumentID)        {}
func (n *noopMonitor) Finish(_ *Query, _ []core.DocumentID, _ error) {}
