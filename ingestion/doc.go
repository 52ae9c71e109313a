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

// Package ingestion bulk-loads captured blocks into a store.
//
// The Pipeline reads one JSON object per line, fills in a derived ID for
// blocks that arrive without one, and saves the blocks concurrently through
// a worker pool. Every block goes through the store's normalizer, so a
// malformed block fails on its own without stopping the rest of the import.
// Failures are collected per line and returned with the result.
package ingestion
