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

// Package summarize builds meta summaries over windows of consecutive blocks.
//
// A Generator reads the blocks of a session in ordinal order, splits them
// into fixed-size windows and asks an ai.Summarizer for a summary of each
// window's content. Summary calls are retried with exponential backoff.
// Each window is saved as a meta summary whose ID is derived from the
// session and the window's block IDs, so running the generator again over
// the same blocks updates the same records instead of adding new ones.
package summarize
