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


package badger

import (
	"context"
	"log/slog"

	"github.com/poiesic/chatvault/core"
	"github.com/poiesic/chatvault/storage"
)

// NewMemoryEngines creates in-memory block and meta summary engines for testing.
// Both engines share the returned database. Caller must close the database when done.
func NewMemoryEngines(ctx context.Context, version int, logger *slog.Logger) (*Engine[core.Block], *Engine[core.MetaSummary], *Database, error) {
	db := OpenDatabase(MemoryOpener(logger), "test", version, storage.Layout("blocks", "meta_summaries"), logger)
	if err := db.Wait(ctx); err != nil {
		return nil, nil, nil, err
	}
	return NewEngine(db, "blocks", storage.Blocks), NewEngine(db, "meta_summaries", storage.MetaSummaries), db, nil
}
