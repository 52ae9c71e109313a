package core

import (
	"cmp"
	"strings"
)

// CompareBlocks orders blocks by StartOrdinal, then Timestamp, then ID.
func CompareBlocks(a, b *Block) int {
	if c := cmp.Compare(a.StartOrdinal, b.StartOrdinal); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// CompareMetaSummaries orders meta summaries by range start, then Timestamp, then ID.
func CompareMetaSummaries(a, b *MetaSummary) int {
	if c := cmp.Compare(a.ChunkRange[0], b.ChunkRange[0]); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
