// Package etcd provides an etcd implementation of the storage driver interface.
// Mod revisions come straight from etcd, so a watched transaction guard is a
// plain ModRevision compare.
package etcd

import (
	"context"
	"errors"
	"fmt"

	etcd "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/playhouse-bot/go-storage/driver"
	"github.com/playhouse-bot/go-storage/kv"
	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/predicate"
	"github.com/playhouse-bot/go-storage/tx"
	"github.com/playhouse-bot/go-storage/watch"
)

// Client is the subset of *etcd.Client the driver uses.
type Client interface {
	Txn(ctx context.Context) etcd.Txn
	Watch(ctx context.Context, key string, opts ...etcd.OpOption) etcd.WatchChan
}

// Driver is an etcd implementation of the storage driver interface.
type Driver struct {
	client Client
	logger *zap.Logger
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ Client        = (*etcd.Client)(nil)

	errUnsupportedPredicateTarget  = errors.New("unsupported predicate target")
	errValuePredicateRequiresBytes = errors.New("value predicate requires []byte or string value")
	errUnsupportedValueOperation   = errors.New("unsupported operation for value predicate")
	errVersionPredicateRequiresInt = errors.New("version predicate requires int64 value")
	errUnsupportedVersionOperation = errors.New("unsupported operation for version predicate")
	errUnsupportedOperationType    = errors.New("unsupported operation type")
)

// Option configures the driver.
type Option func(*Driver)

// WithLogger sets the logger used to report watch errors.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a driver over a connected etcd client.
func New(client Client, opts ...Option) *Driver {
	d := &Driver{client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Execute runs predicates, thenOps and elseOps as a single etcd transaction.
func (d *Driver) Execute(
	ctx context.Context,
	predicates []predicate.Predicate,
	thenOps []operation.Operation,
	elseOps []operation.Operation,
) (tx.Response, error) {
	cmps, err := predicatesToCmps(predicates)
	if err != nil {
		return tx.Response{}, fmt.Errorf("failed to convert predicates: %w", err)
	}

	thenEtcdOps, err := operationsToEtcdOps(thenOps)
	if err != nil {
		return tx.Response{}, fmt.Errorf("failed to convert then operations: %w", err)
	}

	elseEtcdOps, err := operationsToEtcdOps(elseOps)
	if err != nil {
		return tx.Response{}, fmt.Errorf("failed to convert else operations: %w", err)
	}

	resp, err := d.client.Txn(ctx).If(cmps...).Then(thenEtcdOps...).Else(elseEtcdOps...).Commit()
	if err != nil {
		return tx.Response{}, fmt.Errorf("transaction failed: %w", err)
	}

	return etcdResponseToTxResponse(resp), nil
}

// Watch streams an event per etcd change of key. A key ending with "/" or the
// watch.WithPrefix option watches the whole prefix. The returned function
// stops the watch and closes the channel.
func (d *Driver) Watch(ctx context.Context, key []byte, opts ...watch.Option) (<-chan watch.Event, func(), error) {
	options := watch.Apply(opts...)

	var etcdOpts []etcd.OpOption
	if options.Prefix || operation.IsPrefix(key) {
		etcdOpts = append(etcdOpts, etcd.WithPrefix())
	}

	watchCtx, cancel := context.WithCancel(etcd.WithRequireLeader(ctx))
	watchChan := d.client.Watch(watchCtx, string(key), etcdOpts...)
	eventCh := make(chan watch.Event, options.BufferSize)

	go func() {
		defer close(eventCh)

		for {
			select {
			case <-watchCtx.Done():
				return
			case watchResp, ok := <-watchChan:
				if !ok {
					return
				}

				if err := watchResp.Err(); err != nil {
					d.logger.Warn("etcd watch error", zap.ByteString("key", key), zap.Error(err))
					continue
				}

				for range watchResp.Events {
					select {
					case eventCh <- watch.Event{Prefix: key}:
					case <-watchCtx.Done():
						return
					}
				}
			}
		}
	}()

	return eventCh, cancel, nil
}

func etcdResponseToTxResponse(resp *etcd.TxnResponse) tx.Response {
	results := make([]tx.RequestResponse, 0, len(resp.Responses))

	for _, etcdResp := range resp.Responses {
		var values []kv.KeyValue

		switch {
		case etcdResp.GetResponseRange() != nil:
			for _, etcdKv := range etcdResp.GetResponseRange().Kvs {
				values = append(values, kv.KeyValue{
					Key:         etcdKv.Key,
					Value:       etcdKv.Value,
					ModRevision: etcdKv.ModRevision,
				})
			}
		case etcdResp.GetResponseDeleteRange() != nil:
			for _, etcdKv := range etcdResp.GetResponseDeleteRange().PrevKvs {
				values = append(values, kv.KeyValue{
					Key:         etcdKv.Key,
					Value:       etcdKv.Value,
					ModRevision: etcdKv.ModRevision,
				})
			}
		}

		results = append(results, tx.RequestResponse{Values: values})
	}

	return tx.Response{
		Succeeded: resp.Succeeded,
		Results:   results,
	}
}
