package core

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeMetaSummaryDoc(t *testing.T) {
	restore := nowMillis
	nowMillis = func() int64 { return 1234 }
	defer func() { nowMillis = restore }()

	tests := []struct {
		name string
		doc  MetaSummaryDoc
		want MetaSummary
	}{
		{
			name: "missing range defaults to zero",
			doc:  MetaSummaryDoc{ID: "m1", SessionURL: "s1", ChunkIDs: []string{"a"}, Summary: "x", Timestamp: 5},
			want: MetaSummary{ID: "m1", SessionURL: "s1", ChunkIDs: []string{"a"}, ChunkRange: [2]int{0, 0}, Summary: "x", Timestamp: 5, ChunkCount: 1},
		},
		{
			name: "bad end falls back to start",
			doc:  MetaSummaryDoc{ID: "m1", SessionURL: "s1", ChunkRange: []float64{3, math.Inf(-1)}, Summary: "x", Timestamp: 5},
			want: MetaSummary{ID: "m1", SessionURL: "s1", ChunkIDs: []string{}, ChunkRange: [2]int{3, 3}, Summary: "x", Timestamp: 5},
		},
		{
			name: "nan timestamp becomes now",
			doc:  MetaSummaryDoc{ID: "m1", SessionURL: "s1", ChunkRange: []float64{1, 2}, Summary: " y ", Timestamp: math.NaN()},
			want: MetaSummary{ID: "m1", SessionURL: "s1", ChunkIDs: []string{}, ChunkRange: [2]int{1, 2}, Summary: "y", Timestamp: 1234},
		},
		{
			name: "out of range values saturate",
			doc:  MetaSummaryDoc{ID: "m1", SessionURL: "s1", ChunkRange: []float64{-1e300, 1e300}, Summary: "x", Timestamp: 1e300},
			want: MetaSummary{ID: "m1", SessionURL: "s1", ChunkIDs: []string{}, ChunkRange: [2]int{math.MinInt64, math.MaxInt64}, Summary: "x", Timestamp: math.MaxInt64},
		},
		{
			name: "stored chunk count is ignored",
			doc:  MetaSummaryDoc{ID: "m1", SessionURL: "s1", ChunkIDs: []string{"a", "b", "c"}, ChunkRange: []float64{0, 2}, Summary: "z", Timestamp: 1, ChunkCount: 1},
			want: MetaSummary{ID: "m1", SessionURL: "s1", ChunkIDs: []string{"a", "b", "c"}, ChunkRange: [2]int{0, 2}, Summary: "z", Timestamp: 1, ChunkCount: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeMetaSummaryDoc(tt.doc)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestSanitizeBlockDoc(t *testing.T) {
	restore := nowMillis
	nowMillis = func() int64 { return 77 }
	defer func() { nowMillis = restore }()

	got := SanitizeBlockDoc(BlockDoc{
		ID:           "b1",
		SessionURL:   "s1",
		StartOrdinal: math.NaN(),
		MessageCount: -4,
		Timestamp:    math.Inf(1),
	})
	assert.Equal(t, Block{ID: "b1", SessionURL: "s1", StartOrdinal: 0, MessageCount: 0, Timestamp: 77}, *got)

	got = SanitizeBlockDoc(BlockDoc{ID: "b2", SessionURL: "s1", StartOrdinal: 4, MessageCount: math.NaN(), Timestamp: 9})
	assert.Equal(t, 4, got.StartOrdinal)
	assert.Equal(t, 0, got.MessageCount)
	assert.Equal(t, int64(9), got.Timestamp)

	got = SanitizeBlockDoc(BlockDoc{ID: "b3", SessionURL: "s1", StartOrdinal: 1e300, MessageCount: 1e300, Timestamp: -1e300})
	assert.Equal(t, math.MaxInt64, got.StartOrdinal)
	assert.Equal(t, math.MaxInt64, got.MessageCount)
	assert.Equal(t, int64(math.MinInt64), got.Timestamp)
}

func TestSanitizeAfterNormalizeIsIdentity(t *testing.T) {
	blocks := []map[string]any{
		{"id": "b1", "sessionUrl": "s1", "startOrdinal": 0.0, "messageCount": 5.0, "timestamp": 100.0},
		{"id": "b2", "sessionUrl": "s1", "startOrdinal": -3.0, "timestamp": 0.0, "content": "hello"},
		{"id": " b3 ", "sessionUrl": "s2", "startOrdinal": "12", "messageCount": 0.0, "timestamp": -50.0},
	}
	for _, raw := range blocks {
		normalized, err := NormalizeBlock(raw)
		require.NoError(t, err)
		assert.Equal(t, normalized, SanitizeBlock(normalized))
	}

	metas := []map[string]any{
		{"id": "m1", "sessionUrl": "s1", "chunkIds": []any{"b1", "b2"}, "chunkRange": []any{0.0, 1.0}, "summary": "x", "timestamp": 1.0},
		{"id": "m2", "sessionUrl": "s1", "chunkIds": []string{"b3"}, "chunkRange": []int{5, 2}, "summary": "y", "timestamp": 0.0},
	}
	for _, raw := range metas {
		normalized, err := NormalizeMetaSummary(raw)
		require.NoError(t, err)
		assert.Equal(t, normalized, SanitizeMetaSummary(normalized))
	}
}

func TestClone(t *testing.T) {
	m := &MetaSummary{ID: "m1", ChunkIDs: []string{"a", "b"}}
	c := m.Clone()
	require.NotSame(t, m, c)
	c.ChunkIDs[0] = "z"
	assert.Equal(t, "a", m.ChunkIDs[0])

	b := &Block{ID: "b1", Content: "x"}
	bc := b.Clone()
	require.NotSame(t, b, bc)
	assert.Equal(t, b, bc)

	assert.Nil(t, (*Block)(nil).Clone())
	assert.Nil(t, (*MetaSummary)(nil).Clone())
}

func TestCompareBlocks(t *testing.T) {
	blocks := []*Block{
		{ID: "c", StartOrdinal: 1, Timestamp: 5},
		{ID: "b", StartOrdinal: 1, Timestamp: 5},
		{ID: "a", StartOrdinal: 1, Timestamp: 9},
		{ID: "z", StartOrdinal: 0, Timestamp: 100},
	}
	slices.SortFunc(blocks, CompareBlocks)

	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	assert.Equal(t, []string{"z", "b", "c", "a"}, ids)
}

func TestCompareMetaSummaries(t *testing.T) {
	metas := []*MetaSummary{
		{ID: "m3", ChunkRange: [2]int{4, 5}, Timestamp: 1},
		{ID: "m2", ChunkRange: [2]int{0, 3}, Timestamp: 2},
		{ID: "m1", ChunkRange: [2]int{0, 1}, Timestamp: 2},
		{ID: "m0", ChunkRange: [2]int{0, 9}, Timestamp: 1},
	}
	slices.SortFunc(metas, CompareMetaSummaries)

	ids := make([]string, len(metas))
	for i, m := range metas {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"m0", "m1", "m2", "m3"}, ids)
}

func TestDeriveIDs(t *testing.T) {
	a := DeriveBlockID("s1", 0)
	assert.Equal(t, a, DeriveBlockID("s1", 0))
	assert.NotEqual(t, a, DeriveBlockID("s1", 1))
	assert.NotEqual(t, a, DeriveBlockID("s2", 0))
	assert.Regexp(t, `^blk_[0-9a-f]{16}$`, a)

	m := DeriveMetaSummaryID("s1", []string{"a", "b"})
	assert.Equal(t, m, DeriveMetaSummaryID("s1", []string{"a", "b"}))
	assert.NotEqual(t, m, DeriveMetaSummaryID("s1", []string{"ab"}))
	assert.Regexp(t, `^meta_[0-9a-f]{16}$`, m)
}
