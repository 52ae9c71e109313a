package storage

import (
	"encoding/binary"

	"github.com/poiesic/chatvault/core"
)

// Index names shared by every store.
const (
	IndexSessionURL   = "sessionUrl"
	IndexStartOrdinal = "startOrdinal"
	IndexTimestamp    = "timestamp"
)

// IndexSpec describes one secondary index of a record type.
// Key returns the order-preserving encoding of the indexed value.
type IndexSpec[T any] struct {
	Name  string
	Since int // Schema version that introduced the index
	Key   func(*T) []byte
}

// RecordType bundles everything an engine needs to know about one record kind.
type RecordType[T any] struct {
	Kind       string
	ID         func(*T) string
	SessionURL func(*T) string
	Clone      func(*T) *T
	Compare    func(a, b *T) int
	Marshal    func(*T) []byte
	Unmarshal  func([]byte) (*T, error)
	Indexes    []IndexSpec[T]
}

// Index returns the spec of the named index.
func (rt RecordType[T]) Index(name string) (IndexSpec[T], bool) {
	for _, idx := range rt.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexSpec[T]{}, false
}

// Store describes a store holding this record type for the schema layout.
// Index definitions carry a decoder so a migration can backfill them.
func (rt RecordType[T]) Store(name string, since int) StoreSpec {
	spec := StoreSpec{Name: name, Since: since}
	for _, idx := range rt.Indexes {
		key := idx.Key
		spec.Indexes = append(spec.Indexes, IndexDef{
			Name:  idx.Name,
			Since: max(since, idx.Since),
			KeyOf: func(value []byte) ([]byte, error) {
				record, err := rt.Unmarshal(value)
				if err != nil {
					return nil, err
				}
				return key(record), nil
			},
		})
	}
	return spec
}

// Blocks is the record type of core.Block.
var Blocks = RecordType[core.Block]{
	Kind:       "block",
	ID:         func(b *core.Block) string { return b.ID },
	SessionURL: func(b *core.Block) string { return b.SessionURL },
	Clone:      (*core.Block).Clone,
	Compare:    core.CompareBlocks,
	Marshal:    MarshalBlock,
	Unmarshal:  UnmarshalBlock,
	Indexes: []IndexSpec[core.Block]{
		{Name: IndexSessionURL, Since: 1, Key: func(b *core.Block) []byte { return StringKey(b.SessionURL) }},
		{Name: IndexStartOrdinal, Since: 1, Key: func(b *core.Block) []byte { return IntKey(int64(b.StartOrdinal)) }},
		{Name: IndexTimestamp, Since: 1, Key: func(b *core.Block) []byte { return IntKey(b.Timestamp) }},
	},
}

// MetaSummaries is the record type of core.MetaSummary.
var MetaSummaries = RecordType[core.MetaSummary]{
	Kind:       "meta summary",
	ID:         func(m *core.MetaSummary) string { return m.ID },
	SessionURL: func(m *core.MetaSummary) string { return m.SessionURL },
	Clone:      (*core.MetaSummary).Clone,
	Compare:    core.CompareMetaSummaries,
	Marshal:    MarshalMetaSummary,
	Unmarshal:  UnmarshalMetaSummary,
	Indexes: []IndexSpec[core.MetaSummary]{
		{Name: IndexSessionURL, Since: 2, Key: func(m *core.MetaSummary) []byte { return StringKey(m.SessionURL) }},
		{Name: IndexTimestamp, Since: 2, Key: func(m *core.MetaSummary) []byte { return IntKey(m.Timestamp) }},
	},
}

// StringKey encodes s as a length-prefixed index value, so one value's
// encoding is never a prefix of another's.
func StringKey(s string) []byte {
	buf := make([]byte, 4+len(s))
	binary.BigEndian.PutUint32(buf, uint32(len(s)))
	copy(buf[4:], s)
	return buf
}

// IntKey encodes v so that byte order matches numeric order.
func IntKey(v int64) []byte {
	buf := make([]byte, 8)
	// Flip the sign bit so negative values sort before positive ones
	binary.BigEndian.PutUint64(buf, uint64(v)^(1<<63))
	return buf
}

// Layout returns the schema layout of a database holding blocks in
// blockStore and meta summaries in metaStore. The meta store arrived with
// schema version 2.
func Layout(blockStore, metaStore string) []StoreSpec {
	return []StoreSpec{
		Blocks.Store(blockStore, 1),
		MetaSummaries.Store(metaStore, 2),
	}
}
