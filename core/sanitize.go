package core

import (
	"math"
	"strings"
)

// SanitizeBlockDoc repairs a stored block document. It never fails:
// non-finite ordinals become 0, non-finite or negative message counts become
// 0 and non-finite timestamps become the current time. Finite values beyond
// the int64 range saturate at its bounds.
func SanitizeBlockDoc(doc BlockDoc) *Block {
	ordinal := doc.StartOrdinal
	if !isFinite(ordinal) {
		ordinal = 0
	}
	messageCount := doc.MessageCount
	if !isFinite(messageCount) || messageCount < 0 {
		messageCount = 0
	}
	timestamp := doc.Timestamp
	if !isFinite(timestamp) {
		timestamp = float64(nowMillis())
	}
	return &Block{
		ID:           doc.ID,
		SessionURL:   doc.SessionURL,
		StartOrdinal: int(truncInt(ordinal)),
		MessageCount: int(truncInt(messageCount)),
		Timestamp:    truncInt(timestamp),
		Content:      doc.Content,
	}
}

// SanitizeMetaSummaryDoc repairs a stored meta summary document. A missing
// or non-finite range start becomes 0 and a bad end falls back to the start.
// ChunkCount is always recomputed from ChunkIDs.
func SanitizeMetaSummaryDoc(doc MetaSummaryDoc) *MetaSummary {
	start, end := math.NaN(), math.NaN()
	if len(doc.ChunkRange) > 0 {
		start = doc.ChunkRange[0]
	}
	if len(doc.ChunkRange) > 1 {
		end = doc.ChunkRange[1]
	}
	if !isFinite(start) {
		start = 0
	}
	if !isFinite(end) {
		end = start
	}

	chunkIDs := append(make([]string, 0, len(doc.ChunkIDs)), doc.ChunkIDs...)

	timestamp := doc.Timestamp
	if !isFinite(timestamp) {
		timestamp = float64(nowMillis())
	}

	return &MetaSummary{
		ID:         doc.ID,
		SessionURL: doc.SessionURL,
		ChunkIDs:   chunkIDs,
		ChunkRange: [2]int{int(truncInt(start)), int(truncInt(end))},
		Summary:    strings.TrimSpace(doc.Summary),
		Timestamp:  truncInt(timestamp),
		ChunkCount: len(chunkIDs),
	}
}

// SanitizeBlock returns a repaired copy of b.
func SanitizeBlock(b *Block) *Block {
	if b == nil {
		return nil
	}
	return SanitizeBlockDoc(b.Doc())
}

// SanitizeMetaSummary returns a repaired copy of m with ChunkCount recomputed.
func SanitizeMetaSummary(m *MetaSummary) *MetaSummary {
	if m == nil {
		return nil
	}
	return SanitizeMetaSummaryDoc(m.Doc())
}
