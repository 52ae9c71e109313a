package search

import "github.com/poiesic/chatvault/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, words []string)
	AfterRetrieval(blocks, metas int)
	BlockHit(block *core.Block, score float32)
	MetaHit(meta *core.MetaSummary, score float32)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ []string)             {}
func (n *noopMonitor) AfterRetrieval(_, _ int)                {}
func (n *noopMonitor) BlockHit(_ *core.Block, _ float32)      {}
func (n *noopMonitor) MetaHit(_ *core.MetaSummary, _ float32) {}
func (n *noopMonitor) Finish(_ []*Result)                     {}
