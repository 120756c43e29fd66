// Package tkv provides a Tarantool config storage driver implementation.
// Transactions are sent as a single call to config.storage.txn, and watches
// use the box.watch keys config.storage publishes.
package tkv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tarantool/go-tarantool/v2"

	"github.com/playhouse-bot/go-storage/driver"
	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/predicate"
	"github.com/playhouse-bot/go-storage/tx"
	"github.com/playhouse-bot/go-storage/watch"
)

const (
	txnFunction = "config.storage.txn"
	watchPrefix = "config.storage:"
)

// DoerWatcher is implemented by tarantool.Connection and pool.ConnectionAdapter.
type DoerWatcher interface {
	tarantool.Doer

	NewWatcher(key string, callback tarantool.WatchCallback) (tarantool.Watcher, error)
}

// Driver is a Tarantool implementation of the storage driver interface.
type Driver struct {
	conn DoerWatcher
}

var (
	_ driver.Driver = (*Driver)(nil)

	// ErrUnexpectedResponse is returned when the response from tarantool has unexpected format.
	ErrUnexpectedResponse = errors.New("unexpected response from tarantool")
)

// New creates a driver over a tarantool connection or pool.
func New(doer DoerWatcher) *Driver {
	return &Driver{conn: doer}
}

// Execute runs the transaction on the storage instance. Get limits are
// applied to the returned values since config.storage has no range limit.
func (d *Driver) Execute(
	ctx context.Context,
	predicates []predicate.Predicate,
	thenOps []operation.Operation,
	elseOps []operation.Operation,
) (tx.Response, error) {
	req := tarantool.NewCallRequest(txnFunction).
		Args([]any{newTxnRequest(predicates, thenOps, elseOps)}).
		Context(ctx)

	var result []txnResponse

	switch err := d.conn.Do(req).GetTyped(&result); {
	case err != nil:
		return tx.Response{}, fmt.Errorf("failed to execute transaction: %w", err)
	case len(result) != 1:
		return tx.Response{}, fmt.Errorf("%w: expected 1 response, got %d", ErrUnexpectedResponse, len(result))
	}

	resp := result[0].asTxnResponse()

	ops := elseOps
	if resp.Succeeded {
		ops = thenOps
	}

	return applyLimits(resp, ops), nil
}

func applyLimits(resp tx.Response, ops []operation.Operation) tx.Response {
	for i, op := range ops {
		if i >= len(resp.Results) {
			break
		}

		if limit := op.Limit(); limit > 0 && len(resp.Results[i].Values) > limit {
			resp.Results[i].Values = resp.Results[i].Values[:limit]
		}
	}

	return resp
}

// Watch notifies about changes of key through the config.storage watch key.
// Tarantool coalesces notifications, so an event means "changed at least
// once since the previous event".
func (d *Driver) Watch(ctx context.Context, key []byte, opts ...watch.Option) (<-chan watch.Event, func(), error) {
	options := watch.Apply(opts...)
	events := make(chan watch.Event, options.BufferSize)

	watcher, err := d.conn.NewWatcher(watchPrefix+string(key), func(_ tarantool.WatchEvent) {
		select {
		case events <- watch.Event{Prefix: key}:
		default:
		}
	})
	if err != nil {
		close(events)
		return nil, nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	var (
		stopOnce sync.Once
		stopped  = make(chan struct{})
	)

	stop := func() { stopOnce.Do(func() { close(stopped) }) }

	go func() {
		defer func() {
			// Unregister waits for running callbacks, so nothing writes to events after it.
			watcher.Unregister()
			close(events)
		}()

		select {
		case <-ctx.Done():
		case <-stopped:
		}
	}()

	return events, stop, nil
}
