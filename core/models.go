package core

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// Block is one contiguous chunk of captured conversation.
// ID is the primary key; a save with an existing ID replaces the record.
type Block struct {
	ID           string `json:"id"`
	SessionURL   string `json:"sessionUrl"`   // Source conversation the chunk was captured from
	StartOrdinal int    `json:"startOrdinal"` // Position of the chunk within its session
	MessageCount int    `json:"messageCount"`
	Timestamp    int64  `json:"timestamp"`         // Creation time, unix milliseconds
	Content      string `json:"content,omitempty"` // Raw captured text, optional
}

// MetaSummary is a derived summary covering a contiguous run of blocks.
// ChunkIDs are soft references; nothing cascades when a block is deleted.
type MetaSummary struct {
	ID         string   `json:"id"`
	SessionURL string   `json:"sessionUrl"`
	ChunkIDs   []string `json:"chunkIds"`
	ChunkRange [2]int   `json:"chunkRange"` // [start, end] chunk indexes covered
	Summary    string   `json:"summary"`
	Timestamp  int64    `json:"timestamp"`
	ChunkCount int      `json:"chunkCount"` // Always len(ChunkIDs)
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

// Clone returns a deep copy of the meta summary.
func (m *MetaSummary) Clone() *MetaSummary {
	if m == nil {
		return nil
	}
	c := *m
	c.ChunkIDs = append(make([]string, 0, len(m.ChunkIDs)), m.ChunkIDs...)
	return &c
}

// BlockDoc is the loosely-typed shape of a block as read back from storage.
// Numeric fields may be NaN when a stored layout predates them or held
// garbage; SanitizeBlockDoc repairs them.
type BlockDoc struct {
	ID           string
	SessionURL   string
	StartOrdinal float64
	MessageCount float64
	Timestamp    float64
	Content      string
}

// MetaSummaryDoc is the loosely-typed shape of a meta summary as read back
// from storage. ChunkRange may hold fewer than two entries.
type MetaSummaryDoc struct {
	ID         string
	SessionURL string
	ChunkIDs   []string
	ChunkRange []float64
	Summary    string
	Timestamp  float64
	ChunkCount float64 // Ignored; recomputed from ChunkIDs
}

// Doc converts the block to its storage document.
func (b *Block) Doc() BlockDoc {
	return BlockDoc{
		ID:           b.ID,
		SessionURL:   b.SessionURL,
		StartOrdinal: float64(b.StartOrdinal),
		MessageCount: float64(b.MessageCount),
		Timestamp:    float64(b.Timestamp),
		Content:      b.Content,
	}
}

// Doc converts the meta summary to its storage document.
func (m *MetaSummary) Doc() MetaSummaryDoc {
	return MetaSummaryDoc{
		ID:         m.ID,
		SessionURL: m.SessionURL,
		ChunkIDs:   append(make([]string, 0, len(m.ChunkIDs)), m.ChunkIDs...),
		ChunkRange: []float64{float64(m.ChunkRange[0]), float64(m.ChunkRange[1])},
		Summary:    m.Summary,
		Timestamp:  float64(m.Timestamp),
		ChunkCount: float64(len(m.ChunkIDs)),
	}
}

// DeriveBlockID generates a deterministic block ID from its session and
// ordinal using BLAKE2b, so re-importing the same chunk overwrites it.
func DeriveBlockID(sessionURL string, startOrdinal int) string {
	return "blk_" + digest(sessionURL, strconv.Itoa(startOrdinal))
}

// DeriveMetaSummaryID generates a deterministic meta summary ID from the
// session and the chunk IDs it covers.
func DeriveMetaSummaryID(sessionURL string, chunkIDs []string) string {
	return "meta_" + digest(sessionURL, strings.Join(chunkIDs, "\x00"))
}

func digest(parts ...string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
