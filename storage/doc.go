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

// Package storage provides the storage abstraction layer for chatvault.
//
// This package defines the Engine contract shared by every storage backend,
// the record types that describe how blocks and meta summaries are keyed,
// indexed, ordered and encoded, and the schema layout used to evolve a
// persisted database. It allows the BadgerDB engine and the in-memory
// fallback engine to be used interchangeably.
//
// # Architecture
//
//   - Engine: uniform put/get/query/delete/clear contract for one record kind
//   - RecordType: per-kind identity, ordering, cloning, codec and indexes
//   - StoreSpec / PlanMigration: additive schema evolution between versions
//
// # Usage
//
// Engines are normally created by the chatvault Controller. To use one
// directly with the in-memory fallback:
//
//	blocks := memory.NewEngine(storage.Blocks)
//	defer blocks.Close()
//
// # Encoding
//
// Records are stored in a versioned binary layout built on mus-go. Every
// value read back is passed through the core sanitizer, so documents written
// by older layouts decode into valid records with safe defaults.
//
// # Thread Safety
//
// All engine implementations must be safe for concurrent use from
// multiple goroutines.
package storage
