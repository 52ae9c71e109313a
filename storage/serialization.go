// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"math"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/chatvault/core"
)

// Record layouts. Every encoded record starts with one layout byte.
//
//	block v1: id, sessionUrl, startOrdinal, messageCount, timestamp
//	block v2: v1 + content
//	meta  v1: id, sessionUrl, chunkIds, chunkRange, summary, timestamp, chunkCount
//
// Numbers are stored as float64 bits so that documents carrying NaN survive
// a round trip and are repaired by the sanitizer on read.
const (
	blockLayoutV1 byte = 1
	blockLayoutV2 byte = 2
	metaLayoutV1  byte = 1

	currentBlockLayout = blockLayoutV2
	currentMetaLayout  = metaLayoutV1
)

// MarshalBlock serializes a Block to bytes using the current layout.
func MarshalBlock(block *core.Block) []byte {
	doc := block.Doc()
	size := 1 +
		ord.String.Size(doc.ID) +
		ord.String.Size(doc.SessionURL) +
		floatSize(doc.StartOrdinal) +
		floatSize(doc.MessageCount) +
		floatSize(doc.Timestamp) +
		ord.String.Size(doc.Content)

	w := writer{bs: make([]byte, size)}
	w.u8(currentBlockLayout)
	w.str(doc.ID)
	w.str(doc.SessionURL)
	w.float(doc.StartOrdinal)
	w.float(doc.MessageCount)
	w.float(doc.Timestamp)
	w.str(doc.Content)
	return w.bs
}

// UnmarshalBlockDoc deserializes the stored document of a block without
// repairing it.
func UnmarshalBlockDoc(data []byte) (core.BlockDoc, error) {
	r := reader{bs: data}
	layout := r.u8()
	doc := core.BlockDoc{
		StartOrdinal: math.NaN(),
		MessageCount: math.NaN(),
		Timestamp:    math.NaN(),
	}
	switch layout {
	case blockLayoutV1, blockLayoutV2:
		doc.ID = r.str()
		doc.SessionURL = r.str()
		doc.StartOrdinal = r.float()
		doc.MessageCount = r.float()
		doc.Timestamp = r.float()
		if layout >= blockLayoutV2 {
			doc.Content = r.str()
		}
	default:
		if r.err == nil {
			return doc, fmt.Errorf("%w: %w: block layout %d", ErrSerializationFailed, ErrUnknownFormat, layout)
		}
	}
	if r.err != nil {
		return doc, fmt.Errorf("%w: block: %w", ErrSerializationFailed, r.err)
	}
	return doc, nil
}

// UnmarshalBlock deserializes a Block and repairs any invalid fields.
func UnmarshalBlock(data []byte) (*core.Block, error) {
	doc, err := UnmarshalBlockDoc(data)
	if err != nil {
		return nil, err
	}
	return core.SanitizeBlockDoc(doc), nil
}

// MarshalMetaSummary serializes a MetaSummary to bytes using the current layout.
func MarshalMetaSummary(meta *core.MetaSummary) []byte {
	doc := meta.Doc()
	size := 1 +
		ord.String.Size(doc.ID) +
		ord.String.Size(doc.SessionURL) +
		varint.Int.Size(len(doc.ChunkIDs)) +
		varint.Int.Size(len(doc.ChunkRange)) +
		ord.String.Size(doc.Summary) +
		floatSize(doc.Timestamp) +
		floatSize(doc.ChunkCount)
	for _, id := range doc.ChunkIDs {
		size += ord.String.Size(id)
	}
	for _, f := range doc.ChunkRange {
		size += floatSize(f)
	}

	w := writer{bs: make([]byte, size)}
	w.u8(currentMetaLayout)
	w.str(doc.ID)
	w.str(doc.SessionURL)
	w.count(len(doc.ChunkIDs))
	for _, id := range doc.ChunkIDs {
		w.str(id)
	}
	w.count(len(doc.ChunkRange))
	for _, f := range doc.ChunkRange {
		w.float(f)
	}
	w.str(doc.Summary)
	w.float(doc.Timestamp)
	w.float(doc.ChunkCount)
	return w.bs
}

// UnmarshalMetaSummaryDoc deserializes the stored document of a meta summary
// without repairing it.
func UnmarshalMetaSummaryDoc(data []byte) (core.MetaSummaryDoc, error) {
	r := reader{bs: data}
	layout := r.u8()
	doc := core.MetaSummaryDoc{Timestamp: math.NaN(), ChunkCount: math.NaN()}
	switch layout {
	case metaLayoutV1:
		doc.ID = r.str()
		doc.SessionURL = r.str()
		if n := r.count(); n > 0 {
			doc.ChunkIDs = make([]string, 0, n)
			for i := 0; i < n && r.err == nil; i++ {
				doc.ChunkIDs = append(doc.ChunkIDs, r.str())
			}
		}
		if n := r.count(); n > 0 {
			doc.ChunkRange = make([]float64, 0, n)
			for i := 0; i < n && r.err == nil; i++ {
				doc.ChunkRange = append(doc.ChunkRange, r.float())
			}
		}
		doc.Summary = r.str()
		doc.Timestamp = r.float()
		doc.ChunkCount = r.float()
	default:
		if r.err == nil {
			return doc, fmt.Errorf("%w: %w: meta summary layout %d", ErrSerializationFailed, ErrUnknownFormat, layout)
		}
	}
	if r.err != nil {
		return doc, fmt.Errorf("%w: meta summary: %w", ErrSerializationFailed, r.err)
	}
	return doc, nil
}

// UnmarshalMetaSummary deserializes a MetaSummary and repairs any invalid fields.
func UnmarshalMetaSummary(data []byte) (*core.MetaSummary, error) {
	doc, err := UnmarshalMetaSummaryDoc(data)
	if err != nil {
		return nil, err
	}
	return core.SanitizeMetaSummaryDoc(doc), nil
}

func floatSize(f float64) int {
	return varint.Uint64.Size(math.Float64bits(f))
}

// writer appends mus-encoded values to a pre-sized buffer.
type writer struct {
	bs  []byte
	off int
}

func (w *writer) u8(b byte) {
	w.bs[w.off] = b
	w.off++
}

func (w *writer) str(s string) {
	w.off += ord.String.Marshal(s, w.bs[w.off:])
}

func (w *writer) float(f float64) {
	w.off += varint.Uint64.Marshal(math.Float64bits(f), w.bs[w.off:])
}

func (w *writer) count(n int) {
	w.off += varint.Int.Marshal(n, w.bs[w.off:])
}

// reader consumes mus-encoded values. The first failure sticks in err and
// every later read returns a zero value.
type reader struct {
	bs  []byte
	off int
	err error
}

func (r *reader) u8() byte {
	if r.err != nil {
		return 0
	}
	if r.off >= len(r.bs) {
		r.err = ErrTruncatedData
		return 0
	}
	b := r.bs[r.off]
	r.off++
	return b
}

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs[r.off:])
	if err != nil {
		r.err = err
		return ""
	}
	r.off += n
	return v
}

func (r *reader) float() float64 {
	if r.err != nil {
		return math.NaN()
	}
	v, n, err := varint.Uint64.Unmarshal(r.bs[r.off:])
	if err != nil {
		r.err = err
		return math.NaN()
	}
	r.off += n
	return math.Float64frombits(v)
}

func (r *reader) count() int {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(r.bs[r.off:])
	if err != nil {
		r.err = err
		return 0
	}
	r.off += n
	// Every element takes at least one byte.
	if v < 0 || v > len(r.bs)-r.off {
		r.err = ErrTruncatedData
		return 0
	}
	return v
}
