package watchtx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playhouse-bot/go-storage"
	"github.com/playhouse-bot/go-storage/driver/dummy"
	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/watchtx"
)

func TestTxn_ReadsOwnWrites(t *testing.T) {
	t.Parallel()

	strg := storage.NewStorage(dummy.New())
	w := newWatcher(t, strg)

	seed(t, strg, "/games/a", "lobby")
	seed(t, strg, "/players/p1", "alice")

	err := w.Do(context.Background(), []byte("/games/a"), func(_ context.Context, txn *watchtx.Txn) error {
		txn.Put([]byte("/players/p2"), []byte("bob"))
		txn.Delete([]byte("/players/p1"))

		got, ok, err := txn.Get([]byte("/players/p2"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("bob"), got.Value)

		ok, err = txn.Exists([]byte("/players/p1"))
		require.NoError(t, err)
		assert.False(t, ok)

		got, ok, err = txn.Get([]byte("/games/a"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("lobby"), got.Value)
		assert.Equal(t, txn.Revision(), got.ModRevision)

		_, _, err = txn.Get([]byte("/players/"))
		require.ErrorIs(t, err, watchtx.ErrInvalidKey)

		assert.Equal(t, 2, txn.Pending())

		return nil
	})
	require.NoError(t, err)

	value, ok := read(t, strg, "/players/p2")
	require.True(t, ok)
	assert.Equal(t, "bob", value)

	_, ok = read(t, strg, "/players/p1")
	assert.False(t, ok)
}

func TestTxn_BufferedValueIsCopied(t *testing.T) {
	t.Parallel()

	strg := storage.NewStorage(dummy.New())
	w := newWatcher(t, strg)

	seed(t, strg, "/games/a", "lobby")

	err := w.Do(context.Background(), []byte("/games/a"), func(_ context.Context, txn *watchtx.Txn) error {
		value := []byte("full")
		txn.Put(txn.Key(), value)
		value[0] = 'X'

		return nil
	})
	require.NoError(t, err)

	value, _ := read(t, strg, "/games/a")
	assert.Equal(t, "full", value)
}

func TestTxn_ExplicitCommit(t *testing.T) {
	t.Parallel()

	drv := dummy.New()
	strg := storage.NewStorage(drv)
	w := newWatcher(t, strg)

	seed(t, strg, "/games/a", "1")

	err := w.Do(context.Background(), []byte("/games/a"), func(_ context.Context, txn *watchtx.Txn) error {
		txn.Put(txn.Key(), []byte("2"))

		resp, err := txn.Commit()
		require.NoError(t, err)
		assert.True(t, resp.Succeeded)
		assert.True(t, txn.Released())

		_, err = txn.Commit()
		require.ErrorIs(t, err, watchtx.ErrReleased)

		_, _, err = txn.Get(txn.Key())
		require.ErrorIs(t, err, watchtx.ErrReleased)

		require.Panics(t, func() { txn.Put(txn.Key(), []byte("3")) })

		return nil
	})
	require.NoError(t, err)

	value, _ := read(t, strg, "/games/a")
	assert.Equal(t, "2", value)
}

func TestTxn_ExplicitCommitConflict(t *testing.T) {
	t.Parallel()

	drv := newInterferingDriver()
	strg := storage.NewStorage(drv)
	w := newWatcher(t, strg)

	seed(t, strg, "/games/a", "1")

	drv.onGuarded(func(n int) {
		if n == 1 {
			drv.sneak(t, operation.Put([]byte("/games/a"), []byte("7")))
		}
	})

	var attempts int

	err := w.Do(context.Background(), []byte("/games/a"), func(_ context.Context, txn *watchtx.Txn) error {
		attempts++

		_, err := txn.Commit()

		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts, "an empty explicit commit still checks the watch")
}

func TestTxn_Discard(t *testing.T) {
	t.Parallel()

	strg := storage.NewStorage(dummy.New())
	w := newWatcher(t, strg)

	seed(t, strg, "/games/a", "1")

	err := w.Do(context.Background(), []byte("/games/a"), func(_ context.Context, txn *watchtx.Txn) error {
		txn.Put(txn.Key(), []byte("2"))
		txn.Discard()

		assert.True(t, txn.Released())
		assert.Zero(t, txn.Pending())

		return nil
	})
	require.NoError(t, err)

	value, _ := read(t, strg, "/games/a")
	assert.Equal(t, "1", value)
}

func TestTxn_PrefixWritePanics(t *testing.T) {
	t.Parallel()

	strg := storage.NewStorage(dummy.New())
	w := newWatcher(t, strg)

	seed(t, strg, "/games/a", "1")

	err := w.Do(context.Background(), []byte("/games/a"), func(_ context.Context, txn *watchtx.Txn) error {
		require.Panics(t, func() { txn.Delete([]byte("/games/")) })
		return nil
	})
	require.NoError(t, err)
}
