package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chatvault/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDatabase(t *testing.T) (*Database, *badger.DB) {
	t.Helper()
	d := OpenDatabase(MemoryOpener(nil), "test", 2, storage.Layout("blocks", "meta_summaries"), nil)
	t.Cleanup(func() { d.Close() })
	db, err := d.handle(context.Background())
	require.NoError(t, err)
	return d, db
}

func TestExecTx_FnErrorIsReturnedUnchanged(t *testing.T) {
	d, db := openTestDatabase(t)
	key := []byte("k")
	boom := errors.New("boom")

	err := d.execTx(db, true, func(txn *badger.Txn) error {
		require.NoError(t, txn.Set(key, []byte("v")))
		return boom
	})
	assert.Equal(t, boom, err)

	// Nothing from the aborted transaction is visible
	err = d.execTx(db, false, func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	assert.ErrorIs(t, err, badger.ErrKeyNotFound)
}

func TestExecTx_CommitConflict(t *testing.T) {
	d, db := openTestDatabase(t)
	key := []byte("k")

	err := d.execTx(db, true, func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		// A concurrent writer commits the same key first
		require.NoError(t, db.Update(func(other *badger.Txn) error {
			return other.Set(key, []byte("theirs"))
		}))
		return txn.Set(key, []byte("ours"))
	})
	assert.ErrorIs(t, err, storage.ErrTransactionFailed)
	assert.ErrorIs(t, err, badger.ErrConflict)
}

func TestRunTx_UnknownStore(t *testing.T) {
	d, _ := openTestDatabase(t)
	called := false

	err := d.runTx(context.Background(), "nope", false, func(*badger.Txn) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, storage.ErrStoreNotFound)
	assert.False(t, called)
}
