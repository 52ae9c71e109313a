package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/chatvault/storage"
)

// Opener opens the BadgerDB database with the given name.
// It is the injection point for the indexed storage backend.
type Opener func(name string) (*badger.DB, error)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// newBadgerLogger routes BadgerDB's own output to logger, or to the default
// logger when it is nil.
func newBadgerLogger(logger *slog.Logger) *badgerLoggerAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &badgerLoggerAdapter{logger: logger.With("component", "badger")}
}

// DirOpener returns an Opener that keeps each named database in its own
// directory below dir. Directories are created as needed.
func DirOpener(dir string, logger *slog.Logger) Opener {
	badgerLogger := newBadgerLogger(logger)
	return func(name string) (*badger.DB, error) {
		filePath := filepath.Join(dir, name)

		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			info, err = os.Stat(filePath)
			if err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}

		opts := badger.DefaultOptions(filePath)
		opts.Logger = badgerLogger
		opts.Compression = options.None
		return badger.Open(opts)
	}
}

// MemoryOpener returns an Opener backed by BadgerDB's in-memory mode.
// Every call opens a fresh, empty database.
func MemoryOpener(logger *slog.Logger) Opener {
	badgerLogger := newBadgerLogger(logger)
	return func(string) (*badger.DB, error) {
		opts := badger.DefaultOptions("").WithInMemory(true)
		opts.Logger = badgerLogger
		opts.Compression = options.None
		return badger.Open(opts)
	}
}

// Database is a BadgerDB connection shared by every engine of one controller.
// The connection opens in the background; operations wait on the single
// pending open and observe its outcome, error included.
type Database struct {
	name    string
	version int
	layout  []storage.StoreSpec
	logger  *slog.Logger

	ready  chan struct{}
	db     *badger.DB
	stores map[string]bool
	err    error

	closeOnce sync.Once
}

// OpenDatabase starts opening the named database and migrating it to version.
// It returns immediately; use Wait or any engine operation to observe the result.
func OpenDatabase(opener Opener, name string, version int, layout []storage.StoreSpec, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Database{
		name:    name,
		version: version,
		layout:  layout,
		logger:  logger.With("component", "badger-database", "db", name),
		ready:   make(chan struct{}),
	}
	go d.open(opener)
	return d
}

func (d *Database) open(opener Opener) {
	defer close(d.ready)

	db, err := opener(d.name)
	if err != nil {
		d.err = fmt.Errorf("open database %q: %w", d.name, err)
		return
	}

	stores, err := d.migrate(db)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			d.logger.Warn("failed to close database after migration error", "err", closeErr)
		}
		d.err = fmt.Errorf("migrate database %q: %w", d.name, err)
		return
	}

	d.db = db
	d.stores = stores
	d.logger.Debug("database ready", "version", d.version, "stores", len(stores))
}

// Wait blocks until the database has opened, or ctx is done.
func (d *Database) Wait(ctx context.Context) error {
	_, err := d.handle(ctx)
	return err
}

// handle returns the open connection once it is available.
func (d *Database) handle(ctx context.Context) (*badger.DB, error) {
	select {
	case <-d.ready:
		return d.db, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// HasStore reports whether the migrated schema contains the named store.
func (d *Database) HasStore(ctx context.Context, store string) (bool, error) {
	if _, err := d.handle(ctx); err != nil {
		return false, err
	}
	return d.stores[store], nil
}

// Close waits for a pending open and releases the connection. It runs once;
// a failure to close is logged rather than returned.
func (d *Database) Close() error {
	d.closeOnce.Do(func() {
		<-d.ready
		if d.db == nil {
			return
		}
		if err := d.db.Close(); err != nil {
			d.logger.Warn("failed to close database", "err", err)
		}
	})
	return nil
}

// migrate applies every planned schema change that is not already present
// and records the new version. Returns the set of stores in the schema.
func (d *Database) migrate(db *badger.DB) (map[string]bool, error) {
	existing, err := d.storedVersion(db)
	if err != nil {
		return nil, err
	}

	changes, err := storage.PlanMigration(existing, d.version, d.layout)
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		d.logger.Info("upgrading schema", "from", existing, "to", d.version)
		err = d.execTx(db, true, func(txn *badger.Txn) error {
			for _, change := range changes {
				if err := d.apply(txn, change); err != nil {
					return fmt.Errorf("%s: %w", change, err)
				}
			}
			version := make([]byte, 8)
			binary.BigEndian.PutUint64(version, uint64(d.version))
			return txn.Set(makeVersionKey(), version)
		})
		if err != nil {
			return nil, err
		}
	}

	return d.catalogStores(db)
}

// apply performs one change unless the catalog shows it already exists.
func (d *Database) apply(txn *badger.Txn, change storage.Change) error {
	switch change.Kind {
	case storage.CreateStore:
		key := makeStoreCatalogKey(change.Store)
		found, err := exists(txn, key)
		if err != nil || found {
			return err
		}
		d.logger.Info("creating store", "store", change.Store)
		return txn.Set(key, []byte{})

	case storage.CreateIndex:
		key := makeIndexCatalogKey(change.Store, change.Index.Name)
		found, err := exists(txn, key)
		if err != nil || found {
			return err
		}
		d.logger.Info("creating index", "store", change.Store, "index", change.Index.Name)
		if err := backfillIndex(txn, change.Store, change.Index); err != nil {
			return err
		}
		return txn.Set(key, []byte{})
	}
	return fmt.Errorf("unsupported schema change %s", change.Kind)
}

// backfillIndex writes index entries for records stored before the index existed.
func backfillIndex(txn *badger.Txn, store string, idx storage.IndexDef) error {
	type entry struct{ id, value []byte }
	var entries []entry

	prefix := makeRecordPrefix(store)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := txn.NewIterator(opts)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		id := item.KeyCopy(nil)[len(prefix):]
		var value []byte
		err := item.Value(func(val []byte) error {
			var err error
			value, err = idx.KeyOf(val)
			return err
		})
		if err != nil {
			iter.Close()
			return err
		}
		entries = append(entries, entry{id: id, value: value})
	}
	iter.Close()

	for _, e := range entries {
		if err := txn.Set(makeIndexKey(store, idx.Name, e.value, string(e.id)), e.id); err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) storedVersion(db *badger.DB) (int, error) {
	var version int
	err := d.execTx(db, false, func(txn *badger.Txn) error {
		item, err := txn.Get(makeVersionKey())
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("%w: schema version", storage.ErrTruncatedData)
			}
			version = int(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	return version, err
}

func (d *Database) catalogStores(db *badger.DB) (map[string]bool, error) {
	stores := make(map[string]bool)
	err := d.execTx(db, false, func(txn *badger.Txn) error {
		for _, spec := range d.layout {
			found, err := exists(txn, makeStoreCatalogKey(spec.Name))
			if err != nil {
				return err
			}
			if found {
				stores[spec.Name] = true
			}
		}
		return nil
	})
	return stores, err
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}
