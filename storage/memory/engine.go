// Package memory provides a process-local storage engine used when no
// indexed backend is available. Nothing it holds survives the process.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/chatvault/core"
	"github.com/poiesic/chatvault/storage"
)

// Engine implements storage.Engine over a map guarded by a RWMutex.
type Engine[T any] struct {
	mu      sync.RWMutex
	rt      storage.RecordType[T]
	records map[string]*T
	missing error
}

var (
	_ storage.BlockEngine       = (*Engine[core.Block])(nil)
	_ storage.MetaSummaryEngine = (*Engine[core.MetaSummary])(nil)
)

// NewEngine creates an empty engine for records of type rt.
func NewEngine[T any](rt storage.RecordType[T]) *Engine[T] {
	return &Engine[T]{
		rt:      rt,
		records: make(map[string]*T),
	}
}

// NewMissingEngine creates an engine standing in for a store the schema
// version in use does not have. Every operation but Close fails with
// storage.ErrStoreNotFound, as it would against the indexed backend.
func NewMissingEngine[T any](rt storage.RecordType[T], store string) *Engine[T] {
	return &Engine[T]{
		rt:      rt,
		missing: fmt.Errorf("%w: %q", storage.ErrStoreNotFound, store),
	}
}

// NewBlockEngine creates an empty block engine.
func NewBlockEngine() *Engine[core.Block] {
	return NewEngine(storage.Blocks)
}

// NewMetaSummaryEngine creates an empty meta summary engine.
func NewMetaSummaryEngine() *Engine[core.MetaSummary] {
	return NewEngine(storage.MetaSummaries)
}

func (e *Engine[T]) Put(ctx context.Context, record *T) (*T, error) {
	if e.missing != nil {
		return nil, e.missing
	}
	stored := e.rt.Clone(record)

	e.mu.Lock()
	e.records[e.rt.ID(stored)] = stored
	e.mu.Unlock()

	return e.rt.Clone(stored), nil
}

func (e *Engine[T]) Get(ctx context.Context, id string) (*T, error) {
	if e.missing != nil {
		return nil, e.missing
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	record, ok := e.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return e.rt.Clone(record), nil
}

func (e *Engine[T]) GetBySession(ctx context.Context, sessionURL string) ([]*T, error) {
	if e.missing != nil {
		return nil, e.missing
	}
	return e.collect(func(record *T) bool {
		return e.rt.SessionURL(record) == sessionURL
	}), nil
}

func (e *Engine[T]) Delete(ctx context.Context, id string) (bool, error) {
	if e.missing != nil {
		return false, e.missing
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.records[id]
	delete(e.records, id)
	return ok, nil
}

func (e *Engine[T]) Clear(ctx context.Context) (int, error) {
	if e.missing != nil {
		return 0, e.missing
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	count := len(e.records)
	clear(e.records)
	return count, nil
}

func (e *Engine[T]) ClearSession(ctx context.Context, sessionURL string) (int, error) {
	if e.missing != nil {
		return 0, e.missing
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0
	for id, record := range e.records {
		if e.rt.SessionURL(record) == sessionURL {
			delete(e.records, id)
			count++
		}
	}
	return count, nil
}

func (e *Engine[T]) GetAll(ctx context.Context) ([]*T, error) {
	if e.missing != nil {
		return nil, e.missing
	}
	return e.collect(func(*T) bool { return true }), nil
}

func (e *Engine[T]) Count(ctx context.Context) (int, error) {
	if e.missing != nil {
		return 0, e.missing
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records), nil
}

// Close is a no-op; the records stay readable until the engine is dropped.
func (e *Engine[T]) Close() error {
	return nil
}

// collect returns sorted copies of the records matching keep.
func (e *Engine[T]) collect(keep func(*T) bool) []*T {
	e.mu.RLock()
	var results []*T
	for _, record := range e.records {
		if keep(record) {
			results = append(results, e.rt.Clone(record))
		}
	}
	e.mu.RUnlock()

	slices.SortFunc(results, e.rt.Compare)
	return results
}
