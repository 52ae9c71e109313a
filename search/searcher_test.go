package search

import (
	"context"
	"testing"

	"github.com/poiesic/chatvault"
	"github.com/poiesic/chatvault/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T) *chatvault.Controller {
	t.Helper()
	c, err := chatvault.Open()
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	ctx := context.Background()

	blocks := []core.Block{
		{ID: "b0", SessionURL: "s1", StartOrdinal: 0, Timestamp: 1, Content: "User: How do I reverse a list in Python?"},
		{ID: "b1", SessionURL: "s1", StartOrdinal: 1, Timestamp: 2, Content: "Assistant: Use reversed() or a slice."},
		{ID: "b2", SessionURL: "s2", StartOrdinal: 0, Timestamp: 3, Content: "User: Python packaging is confusing."},
		{ID: "b3", SessionURL: "s2", StartOrdinal: 1, Timestamp: 4, Content: "Assistant: Try a pyproject file."},
	}
	for _, b := range blocks {
		_, err := c.Save(ctx, b)
		require.NoError(t, err)
	}

	_, err = c.SaveMeta(ctx, core.MetaSummary{
		ID:         "m0",
		SessionURL: "s1",
		ChunkIDs:   []string{"b0", "b1"},
		ChunkRange: [2]int{0, 1},
		Summary:    "The user asked how to reverse a Python list.",
		Timestamp:  5,
	})
	require.NoError(t, err)
	return c
}

// recordingMonitor records monitor callbacks.
type recordingMonitor struct {
	noopMonitor
	words         []string
	blocks, metas int
	hits          int
	finished      bool
}

func (m *recordingMonitor) Start(_ string, words []string)         { m.words = words }
func (m *recordingMonitor) AfterRetrieval(blocks, metas int)       { m.blocks, m.metas = blocks, metas }
func (m *recordingMonitor) BlockHit(_ *core.Block, _ float32)      { m.hits++ }
func (m *recordingMonitor) MetaHit(_ *core.MetaSummary, _ float32) { m.hits++ }
func (m *recordingMonitor) Finish(_ []*Result)                     { m.finished = true }

func TestNewSearcher(t *testing.T) {
	_, err := NewSearcher(nil)
	assert.ErrorIs(t, err, ErrSourceRequired)

	s, err := NewSearcher(newTestSource(t), WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, s.logger)
}

func TestSearch_RanksSummariesAndFullMatches(t *testing.T) {
	s, err := NewSearcher(newTestSource(t))
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "reverse python list", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Summary and b0 hold every word; the summary carries more weight
	require.NotNil(t, results[0].Meta)
	assert.Equal(t, "m0", results[0].Meta.ID)
	require.NotNil(t, results[1].Block)
	assert.Equal(t, "b0", results[1].Block.ID)
	assert.Equal(t, "b2", results[2].Block.ID)
	assert.Greater(t, results[1].Score, results[2].Score)
	assert.Equal(t, "s2", results[2].SessionURL())
}

func TestSearch_SessionScope(t *testing.T) {
	s, err := NewSearcher(newTestSource(t))
	require.NoError(t, err)
	monitor := &recordingMonitor{}

	results, err := s.SearchWithMonitor(context.Background(), "Python", "s2", 10, monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b2", results[0].Block.ID)

	assert.Equal(t, []string{"python"}, monitor.words)
	assert.Equal(t, 2, monitor.blocks)
	assert.Equal(t, 0, monitor.metas)
	assert.Equal(t, 1, monitor.hits)
	assert.True(t, monitor.finished)
}

func TestSearch_MaxHitsAndEmptyQuery(t *testing.T) {
	s, err := NewSearcher(newTestSource(t))
	require.NoError(t, err)
	ctx := context.Background()

	results, err := s.Search(ctx, "python", "", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = s.Search(ctx, "the of and", "", 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	results, err = s.Search(ctx, "kubernetes", "", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCoverage(t *testing.T) {
	words := uniqueWords(tokenizeAndFilter("Reverse the LIST, reverse!"))
	assert.Equal(t, []string{"reverse", "list"}, words)

	share, all := coverage("How do I reverse a list?", words)
	assert.Equal(t, float32(1), share)
	assert.True(t, all)

	share, all = coverage("reverse gear", words)
	assert.Equal(t, float32(0.5), share)
	assert.False(t, all)
}
