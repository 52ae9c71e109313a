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


// Package chatvault persists captured conversation blocks and the meta
// summaries derived from them.
package chatvault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/chatvault/core"
	"github.com/poiesic/chatvault/storage"
	"github.com/poiesic/chatvault/storage/badger"
	"github.com/poiesic/chatvault/storage/memory"
)

// Backend names reported by Controller.Backend.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

var (
	// ErrInvalidVersion is returned when the requested schema version is below 1.
	ErrInvalidVersion = errors.New("invalid schema version")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = storage.ErrNotFound
)

// Stats aggregates the stored blocks.
type Stats struct {
	TotalBlocks   int `json:"totalBlocks"`
	TotalMessages int `json:"totalMessages"`
	Sessions      int `json:"sessions"`
}

// Controller composes a block engine and a meta summary engine behind one API.
// Every record handed in or out is a copy; callers never share memory with
// the store.
type Controller struct {
	blocks  storage.BlockEngine
	metas   storage.MetaSummaryEngine
	backend string
	logger  *slog.Logger
}

// Open creates a Controller. The indexed backend opens in the background and
// the first operations wait for it; an open failure is returned by every
// operation. When neither an opener nor a directory is configured, both
// record kinds live in memory and a warning is logged.
func Open(opts ...Option) (*Controller, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.version < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, o.version)
	}

	c := &Controller{logger: o.logger.With("component", "controller")}

	opener := o.opener
	if opener == nil && o.dir != "" {
		opener = badger.DirOpener(o.dir, o.logger)
	}
	layout := storage.Layout(o.storeName, o.metaStoreName)
	if opener == nil {
		c.logger.Warn("indexed storage unavailable, falling back to in-memory storage; records will not persist")
		c.blocks = memory.NewBlockEngine()
		c.metas = memory.NewMetaSummaryEngine()
		// Stores newer than the requested version stay absent, as they
		// would in the indexed backend
		for _, spec := range layout {
			if spec.Since <= o.version {
				continue
			}
			switch spec.Name {
			case o.storeName:
				c.blocks = memory.NewMissingEngine(storage.Blocks, spec.Name)
			case o.metaStoreName:
				c.metas = memory.NewMissingEngine(storage.MetaSummaries, spec.Name)
			}
		}
		c.backend = BackendMemory
		return c, nil
	}

	db := badger.OpenDatabase(opener, o.dbName, o.version, layout, o.logger)
	c.blocks = badger.NewEngine(db, o.storeName, storage.Blocks)
	c.metas = badger.NewEngine(db, o.metaStoreName, storage.MetaSummaries)
	c.backend = BackendBadger
	return c, nil
}

// Backend reports which engine is active.
func (c *Controller) Backend() string {
	return c.backend
}

// Close releases both engines.
func (c *Controller) Close() error {
	return errors.Join(c.metas.Close(), c.blocks.Close())
}

// Save validates raw and stores it as a block, replacing any block with the
// same ID. raw may be a map of fields or a core.Block.
func (c *Controller) Save(ctx context.Context, raw any) (*core.Block, error) {
	block, err := core.NormalizeBlock(raw)
	if err != nil {
		return nil, err
	}
	return c.blocks.Put(ctx, block)
}

// Get retrieves a block by ID.
func (c *Controller) Get(ctx context.Context, id string) (*core.Block, error) {
	return c.blocks.Get(ctx, id)
}

// GetBySession retrieves the blocks of a session in ordinal order.
func (c *Controller) GetBySession(ctx context.Context, sessionURL string) ([]*core.Block, error) {
	return c.blocks.GetBySession(ctx, sessionURL)
}

// Delete removes a block and reports whether it existed.
// Meta summaries that reference it are left alone.
func (c *Controller) Delete(ctx context.Context, id string) (bool, error) {
	return c.blocks.Delete(ctx, id)
}

// Clear removes every block and returns how many there were.
func (c *Controller) Clear(ctx context.Context) (int, error) {
	return c.blocks.Clear(ctx)
}

// ClearSession removes the blocks of one session and returns how many were removed.
func (c *Controller) ClearSession(ctx context.Context, sessionURL string) (int, error) {
	return c.blocks.ClearSession(ctx, sessionURL)
}

// All retrieves every block.
func (c *Controller) All(ctx context.Context) ([]*core.Block, error) {
	return c.blocks.GetAll(ctx)
}

// Count returns the number of stored blocks.
func (c *Controller) Count(ctx context.Context) (int, error) {
	return c.blocks.Count(ctx)
}

// GetStats scans every block once.
func (c *Controller) GetStats(ctx context.Context) (Stats, error) {
	blocks, err := c.blocks.GetAll(ctx)
	if err != nil {
		return Stats{}, err
	}

	sessions := make(map[string]struct{})
	stats := Stats{TotalBlocks: len(blocks)}
	for _, b := range blocks {
		stats.TotalMessages += max(b.MessageCount, 0)
		sessions[b.SessionURL] = struct{}{}
	}
	stats.Sessions = len(sessions)
	return stats, nil
}

// SaveMeta validates raw and stores it as a meta summary. Any chunk count
// carried by raw is ignored in favour of the number of chunk IDs.
func (c *Controller) SaveMeta(ctx context.Context, raw any) (*core.MetaSummary, error) {
	meta, err := core.NormalizeMetaSummary(raw)
	if err != nil {
		return nil, err
	}
	return c.metas.Put(ctx, meta)
}

// GetMeta retrieves a meta summary by ID.
func (c *Controller) GetMeta(ctx context.Context, id string) (*core.MetaSummary, error) {
	return c.metas.Get(ctx, id)
}

// GetMetaBySession retrieves the meta summaries of a session in chunk order.
func (c *Controller) GetMetaBySession(ctx context.Context, sessionURL string) ([]*core.MetaSummary, error) {
	return c.metas.GetBySession(ctx, sessionURL)
}

// AllMeta retrieves every meta summary.
func (c *Controller) AllMeta(ctx context.Context) ([]*core.MetaSummary, error) {
	return c.metas.GetAll(ctx)
}

// DeleteMeta removes a meta summary and reports whether it existed.
func (c *Controller) DeleteMeta(ctx context.Context, id string) (bool, error) {
	return c.metas.Delete(ctx, id)
}

// ClearMeta removes every meta summary and returns how many there were.
func (c *Controller) ClearMeta(ctx context.Context) (int, error) {
	return c.metas.Clear(ctx)
}

// ClearMetaSession removes the meta summaries of one session.
func (c *Controller) ClearMetaSession(ctx context.Context, sessionURL string) (int, error) {
	return c.metas.ClearSession(ctx, sessionURL)
}
