package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chatvault/storage"
)

// runTx executes fn in a transaction scoped to one store. It waits for the
// pending open, rejects stores the schema does not contain, and then hands
// over to execTx.
func (d *Database) runTx(ctx context.Context, store string, isWrite bool, fn func(txn *badger.Txn) error) error {
	db, err := d.handle(ctx)
	if err != nil {
		return err
	}
	if !d.stores[store] {
		return fmt.Errorf("%w: %q", storage.ErrStoreNotFound, store)
	}
	return d.execTx(db, isWrite, fn)
}

// execTx executes fn within a BadgerDB transaction.
// If fn fails the transaction is aborted and fn's error is returned as is.
// A write transaction is committed when fn succeeds; a failed commit is
// reported as storage.ErrTransactionFailed. The transaction is always
// discarded before returning, so no handle outlives the call.
func (d *Database) execTx(db *badger.DB, isWrite bool, fn func(txn *badger.Txn) error) error {
	txn := db.NewTransaction(isWrite)
	defer txn.Discard()

	if err := fn(txn); err != nil {
		d.abort(txn, err)
		return err
	}
	if !isWrite {
		return nil
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

// abort discards txn after a failed operation. A failing abort is logged
// and never replaces the original error.
func (d *Database) abort(txn *badger.Txn, cause error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("transaction abort failed", "cause", cause, "panic", r)
		}
	}()
	txn.Discard()
}
