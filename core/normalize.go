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


package core

import (
	"fmt"
	"maps"
	"math"
	"strings"
	"time"
)

// nowMillis is swapped in tests that need a fixed clock.
var nowMillis = func() int64 {
	return time.Now().UnixMilli()
}

// NormalizeBlock validates raw input and returns a canonical Block.
//
// Validation rules, checked in order:
//   - raw must be a map[string]any, Block or *Block
//   - id, trimmed, must not be empty
//   - sessionUrl, trimmed, must not be empty
//   - startOrdinal must be a finite number within the int64 range (fractions are truncated)
//   - messageCount, when present, must be in range and non-negative; absent means 0
//   - timestamp, when present, must be in range; absent means now
//
// The returned block shares no memory with raw.
func NormalizeBlock(raw any) (*Block, error) {
	fields, ok := asObject(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlock, ErrNotObject)
	}

	id := strings.TrimSpace(coerceString(fields["id"]))
	if id == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlock, ErrEmptyID)
	}

	sessionURL := strings.TrimSpace(coerceString(fields["sessionUrl"]))
	if sessionURL == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlock, ErrEmptySessionURL)
	}

	ordinal := coerceNumber(fields["startOrdinal"])
	if !isIntegral(ordinal) {
		return nil, fmt.Errorf("%w: %w: got %v", ErrInvalidBlock, ErrInvalidOrdinal, fields["startOrdinal"])
	}

	messageCount := 0.0
	if v, present := fields["messageCount"]; present && v != nil {
		messageCount = coerceNumber(v)
		if !isIntegral(messageCount) || messageCount < 0 {
			return nil, fmt.Errorf("%w: %w: got %v", ErrInvalidBlock, ErrInvalidMessageCount, v)
		}
	}

	timestamp := float64(nowMillis())
	if v, present := fields["timestamp"]; present && v != nil {
		timestamp = coerceNumber(v)
		if !isIntegral(timestamp) {
			return nil, fmt.Errorf("%w: %w: got %v", ErrInvalidBlock, ErrInvalidTimestamp, v)
		}
	}

	content, _ := fields["content"].(string)

	return &Block{
		ID:           id,
		SessionURL:   sessionURL,
		StartOrdinal: int(truncInt(ordinal)),
		MessageCount: int(truncInt(messageCount)),
		Timestamp:    truncInt(timestamp),
		Content:      content,
	}, nil
}

// NormalizeMetaSummary validates raw input and returns a canonical MetaSummary.
//
// Validation rules, checked in order:
//   - raw must be a map[string]any, MetaSummary or *MetaSummary
//   - id, trimmed, must not be empty
//   - sessionUrl, trimmed, must not be empty
//   - chunkIds keeps only string entries and must not end up empty
//   - chunkRange must hold two finite numbers within the int64 range
//   - summary, trimmed, must not be empty
//   - timestamp must be finite and within the int64 range
//
// ChunkCount is derived from the filtered ChunkIDs; any supplied value is ignored.
func NormalizeMetaSummary(raw any) (*MetaSummary, error) {
	fields, ok := asObject(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetaSummary, ErrNotObject)
	}

	id := strings.TrimSpace(coerceString(fields["id"]))
	if id == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetaSummary, ErrEmptyID)
	}

	sessionURL := strings.TrimSpace(coerceString(fields["sessionUrl"]))
	if sessionURL == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetaSummary, ErrEmptySessionURL)
	}

	chunkIDs := stringEntries(fields["chunkIds"])
	if len(chunkIDs) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetaSummary, ErrEmptyChunkIDs)
	}

	bounds := numberEntries(fields["chunkRange"])
	start, end := math.NaN(), math.NaN()
	if len(bounds) > 0 {
		start = bounds[0]
	}
	if len(bounds) > 1 {
		end = bounds[1]
	}
	if !isIntegral(start) || !isIntegral(end) {
		return nil, fmt.Errorf("%w: %w: got %v", ErrInvalidMetaSummary, ErrInvalidChunkRange, fields["chunkRange"])
	}

	summary := strings.TrimSpace(coerceString(fields["summary"]))
	if summary == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetaSummary, ErrEmptySummary)
	}

	timestamp := coerceNumber(fields["timestamp"])
	if !isIntegral(timestamp) {
		return nil, fmt.Errorf("%w: %w: got %v", ErrInvalidMetaSummary, ErrInvalidTimestamp, fields["timestamp"])
	}

	return &MetaSummary{
		ID:         id,
		SessionURL: sessionURL,
		ChunkIDs:   chunkIDs,
		ChunkRange: [2]int{int(truncInt(start)), int(truncInt(end))},
		Summary:    summary,
		Timestamp:  truncInt(timestamp),
		ChunkCount: len(chunkIDs),
	}, nil
}

// WithDerivedBlockID returns fields with an id derived from sessionUrl and
// startOrdinal when fields carries no usable id of its own. Fields that
// cannot yield an id are returned unchanged so normalization reports them.
// The input map is never modified.
func WithDerivedBlockID(fields map[string]any) map[string]any {
	if strings.TrimSpace(coerceString(fields["id"])) != "" {
		return fields
	}
	sessionURL := strings.TrimSpace(coerceString(fields["sessionUrl"]))
	ordinal := coerceNumber(fields["startOrdinal"])
	if sessionURL == "" || !isIntegral(ordinal) {
		return fields
	}

	out := maps.Clone(fields)
	out["id"] = DeriveBlockID(sessionURL, int(truncInt(ordinal)))
	return out
}
