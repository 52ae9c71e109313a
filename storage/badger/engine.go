package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chatvault/core"
	"github.com/poiesic/chatvault/storage"
)

// errUndecodable marks a stored record whose bytes no longer decode.
var errUndecodable = errors.New("cannot decode")

// Engine implements storage.Engine for one store of a BadgerDB database.
type Engine[T any] struct {
	db     *Database
	store  string
	rt     storage.RecordType[T]
	logger *slog.Logger
}

var (
	_ storage.BlockEngine       = (*Engine[core.Block])(nil)
	_ storage.MetaSummaryEngine = (*Engine[core.MetaSummary])(nil)
)

// NewEngine creates an engine for the named store of db.
func NewEngine[T any](db *Database, store string, rt storage.RecordType[T]) *Engine[T] {
	return &Engine[T]{
		db:     db,
		store:  store,
		rt:     rt,
		logger: db.logger.With("component", "badger-engine", "store", store),
	}
}

// Close releases the shared database. Closing more than once is harmless.
func (e *Engine[T]) Close() error {
	return e.db.Close()
}

// Put inserts or replaces a record along with its index entries.
func (e *Engine[T]) Put(ctx context.Context, record *T) (*T, error) {
	stored := e.rt.Clone(record)
	id := e.rt.ID(stored)

	err := e.db.runTx(ctx, e.store, true, func(txn *badger.Txn) error {
		key := makeRecordKey(e.store, id)

		// Drop index entries of the record being replaced
		if _, err := e.dropIndexes(txn, id); err != nil {
			return err
		}

		if err := txn.Set(key, e.rt.Marshal(stored)); err != nil {
			return err
		}
		for _, idx := range e.rt.Indexes {
			if err := txn.Set(makeIndexKey(e.store, idx.Name, idx.Key(stored), id), []byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.rt.Clone(stored), nil
}

// Get retrieves a single record by ID.
func (e *Engine[T]) Get(ctx context.Context, id string) (*T, error) {
	var result *T
	err := e.db.runTx(ctx, e.store, false, func(txn *badger.Txn) error {
		var err error
		result, err = e.read(txn, makeRecordKey(e.store, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetBySession retrieves every record of a session through the session index.
func (e *Engine[T]) GetBySession(ctx context.Context, sessionURL string) ([]*T, error) {
	var results []*T
	err := e.db.runTx(ctx, e.store, false, func(txn *badger.Txn) error {
		ids, err := e.sessionIDs(txn, sessionURL)
		if err != nil {
			return err
		}
		for _, id := range ids {
			record, err := e.read(txn, makeRecordKey(e.store, id))
			if errors.Is(err, storage.ErrNotFound) {
				e.logger.Debug("skipping dangling index entry", "id", id)
				continue
			}
			if err != nil {
				return err
			}
			results = append(results, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(results, e.rt.Compare)
	return results, nil
}

// Delete removes a record and its index entries.
func (e *Engine[T]) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	err := e.db.runTx(ctx, e.store, true, func(txn *badger.Txn) error {
		var err error
		found, err = e.remove(txn, id)
		return err
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Clear removes every record and index entry of the store.
func (e *Engine[T]) Clear(ctx context.Context) (int, error) {
	count := 0
	err := e.db.runTx(ctx, e.store, true, func(txn *badger.Txn) error {
		recordKeys := collectKeys(txn, makeRecordPrefix(e.store))
		indexKeys := collectKeys(txn, makeStoreIndexPrefix(e.store))
		count = len(recordKeys)

		for _, key := range append(recordKeys, indexKeys...) {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ClearSession removes the records of one session, one record at a time.
// Returns the number of index keys found for the session.
func (e *Engine[T]) ClearSession(ctx context.Context, sessionURL string) (int, error) {
	count := 0
	err := e.db.runTx(ctx, e.store, true, func(txn *badger.Txn) error {
		ids, err := e.sessionIDs(txn, sessionURL)
		if err != nil {
			return err
		}
		count = len(ids)
		for _, id := range ids {
			if _, err := e.remove(txn, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetAll retrieves every record of the store.
func (e *Engine[T]) GetAll(ctx context.Context) ([]*T, error) {
	var results []*T
	err := e.db.runTx(ctx, e.store, false, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRecordPrefix(e.store)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *T
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = e.rt.Unmarshal(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("decode %s %q: %w", e.rt.Kind, iter.Item().Key()[len(opts.Prefix):], err)
			}
			results = append(results, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(results, e.rt.Compare)
	return results, nil
}

// Count returns the number of records without reading their values.
func (e *Engine[T]) Count(ctx context.Context) (int, error) {
	count := 0
	err := e.db.runTx(ctx, e.store, false, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeRecordPrefix(e.store)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// read decodes the record stored at key. Returns storage.ErrNotFound when
// the key is absent.
func (e *Engine[T]) read(txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var record *T
	err = item.Value(func(val []byte) error {
		record, err = e.rt.Unmarshal(val)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", errUndecodable, e.rt.Kind, err)
	}
	return record, nil
}

// remove deletes one record and its index entries, reporting whether it existed.
func (e *Engine[T]) remove(txn *badger.Txn, id string) (bool, error) {
	found, err := e.dropIndexes(txn, id)
	if err != nil || !found {
		return false, err
	}
	return true, txn.Delete(makeRecordKey(e.store, id))
}

// dropIndexes deletes the index entries of the record stored under id and
// reports whether there was one. The entries of a record that no longer
// decodes are found by scanning the store's indexes for its id.
func (e *Engine[T]) dropIndexes(txn *badger.Txn, id string) (bool, error) {
	old, err := e.read(txn, makeRecordKey(e.store, id))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	case errors.Is(err, errUndecodable):
		e.logger.Warn("dropping undecodable record", "id", id, "error", err)
		return true, e.deleteIndexesByID(txn, id)
	case err != nil:
		return false, err
	}
	return true, e.deleteIndexes(txn, old)
}

func (e *Engine[T]) deleteIndexes(txn *badger.Txn, record *T) error {
	id := e.rt.ID(record)
	for _, idx := range e.rt.Indexes {
		if err := txn.Delete(makeIndexKey(e.store, idx.Name, idx.Key(record), id)); err != nil {
			return err
		}
	}
	return nil
}

// deleteIndexesByID removes every index entry of the store that points at id.
func (e *Engine[T]) deleteIndexesByID(txn *badger.Txn, id string) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeStoreIndexPrefix(e.store)
	iter := txn.NewIterator(opts)

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		if !bytes.HasSuffix(item.Key(), []byte(id)) {
			continue
		}
		err := item.Value(func(val []byte) error {
			if string(val) == id {
				keys = append(keys, item.KeyCopy(nil))
			}
			return nil
		})
		if err != nil {
			iter.Close()
			return err
		}
	}
	iter.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// sessionIDs scans the session index for the ids of one session.
func (e *Engine[T]) sessionIDs(txn *badger.Txn, sessionURL string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeIndexValuePrefix(e.store, storage.IndexSessionURL, storage.StringKey(sessionURL))
	iter := txn.NewIterator(opts)
	defer iter.Close()

	var ids []string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			ids = append(ids, string(val))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// collectKeys copies every key under prefix. Keys are gathered before any
// delete so the iterator never observes its own writes.
func collectKeys(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	iter := txn.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys
}
