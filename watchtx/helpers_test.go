package watchtx_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/playhouse-bot/go-storage"
	"github.com/playhouse-bot/go-storage/driver"
	"github.com/playhouse-bot/go-storage/driver/dummy"
	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/predicate"
	"github.com/playhouse-bot/go-storage/tx"
	"github.com/playhouse-bot/go-storage/watchtx"
)

// interferingDriver runs a hook right before every guarded (conditional)
// transaction, simulating a writer that wins the race.
type interferingDriver struct {
	*dummy.Driver

	mu        sync.Mutex
	guarded   int
	before    func(n int)
	contended int
}

func newInterferingDriver() *interferingDriver {
	return &interferingDriver{Driver: dummy.New()} //nolint:exhaustruct
}

func (d *interferingDriver) onGuarded(hook func(n int)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.before = hook
}

// contend makes the first n guarded transactions give up the way a backend
// does after losing every internal retry.
func (d *interferingDriver) contend(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.contended = n
}

func (d *interferingDriver) Execute(
	ctx context.Context,
	predicates []predicate.Predicate,
	thenOps []operation.Operation,
	elseOps []operation.Operation,
) (tx.Response, error) {
	if len(predicates) > 0 {
		d.mu.Lock()
		d.guarded++
		n, hook, contended := d.guarded, d.before, d.contended
		d.mu.Unlock()

		if hook != nil {
			hook(n)
		}

		if n <= contended {
			return tx.Response{}, fmt.Errorf("backend gave up: %w", driver.ErrContention)
		}
	}

	return d.Driver.Execute(ctx, predicates, thenOps, elseOps)
}

// sneak writes behind the watcher's back.
func (d *interferingDriver) sneak(t *testing.T, ops ...operation.Operation) {
	t.Helper()

	_, err := d.Driver.Execute(context.Background(), nil, ops, nil)
	require.NoError(t, err)
}

func seed(t *testing.T, strg storage.Storage, key, value string) {
	t.Helper()

	_, err := strg.Tx(context.Background()).Then(operation.Put([]byte(key), []byte(value))).Commit()
	require.NoError(t, err)
}

func read(t *testing.T, strg storage.Storage, key string) (string, bool) {
	t.Helper()

	resp, err := strg.Tx(context.Background()).Then(operation.Get([]byte(key))).Commit()
	require.NoError(t, err)

	values := resp.Values()
	if len(values) == 0 {
		return "", false
	}

	return string(values[0].Value), true
}

func newWatcher(t *testing.T, strg storage.Storage, opts ...watchtx.Option) *watchtx.Watcher {
	t.Helper()

	w, err := watchtx.New(strg, opts...)
	require.NoError(t, err)

	return w
}

// increment adds one to the integer stored under the watched key.
func increment(_ context.Context, txn *watchtx.Txn, _ string) (int, error) {
	current, _, err := txn.Get(txn.Key())
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(string(current.Value))
	if err != nil {
		return 0, err
	}

	n++
	txn.Put(txn.Key(), []byte(strconv.Itoa(n)))

	return n, nil
}

func stringKey(key string) ([]byte, error) {
	return []byte(key), nil
}
