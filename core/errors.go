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

import "errors"

// Domain validation errors
var (
	// ErrInvalidBlock indicates a Block failed validation.
	ErrInvalidBlock = errors.New("invalid block")

	// ErrInvalidMetaSummary indicates a MetaSummary failed validation.
	ErrInvalidMetaSummary = errors.New("invalid meta summary")

	// ErrNotObject indicates the raw input is not a record-shaped value.
	ErrNotObject = errors.New("input must be an object")

	// ErrEmptyID indicates the id field is missing or blank.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptySessionURL indicates the sessionUrl field is missing or blank.
	ErrEmptySessionURL = errors.New("sessionUrl cannot be empty")

	// ErrInvalidOrdinal indicates startOrdinal is not a finite number.
	ErrInvalidOrdinal = errors.New("startOrdinal must be a finite number")

	// ErrInvalidMessageCount indicates messageCount is not a finite, non-negative number.
	ErrInvalidMessageCount = errors.New("messageCount must be a finite non-negative number")

	// ErrEmptyChunkIDs indicates chunkIds holds no string entries.
	ErrEmptyChunkIDs = errors.New("chunkIds must contain at least one string id")

	// ErrInvalidChunkRange indicates a chunkRange entry is not a finite number.
	ErrInvalidChunkRange = errors.New("chunkRange entries must be finite numbers")

	// ErrEmptySummary indicates the summary field is missing or blank.
	ErrEmptySummary = errors.New("summary cannot be empty")

	// ErrInvalidTimestamp indicates timestamp is not a finite number.
	ErrInvalidTimestamp = errors.New("timestamp must be a finite number")
)
