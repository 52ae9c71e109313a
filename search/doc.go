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

// Package search provides keyword search over stored blocks and meta summaries.
//
// The Searcher tokenizes the query, drops stop words, and scores every
// candidate document by the share of query words it contains. Documents
// holding every query word get a verbatim boost, and meta summaries are
// weighted above raw blocks because they condense a whole window.
//
// Search results are ranked by score, then by the record ordering of
// their kind.
package search
