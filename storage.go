package storage

import (
	"context"
	"fmt"

	"github.com/tarantool/go-option"
	"go.uber.org/zap"

	"github.com/playhouse-bot/go-storage/driver"
	"github.com/playhouse-bot/go-storage/kv"
	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/predicate"
	txPkg "github.com/playhouse-bot/go-storage/tx"
	"github.com/playhouse-bot/go-storage/watch"
)

// rangeOptions contains configuration options for range operations.
type rangeOptions struct {
	Prefix string // Prefix filter for range queries.
	Limit  int    // Maximum number of results to return.
}

// RangeOption is a function that configures range operation options.
type RangeOption func(*rangeOptions)

// WithPrefix configures a range operation to filter keys by the specified prefix.
func WithPrefix(prefix string) RangeOption {
	return func(opts *rangeOptions) {
		opts.Prefix = prefix
	}
}

// WithLimit configures a range operation to limit the number of results returned.
func WithLimit(limit int) RangeOption {
	return func(opts *rangeOptions) {
		opts.Limit = limit
	}
}

// Storage is the main interface for key-value storage operations.
// It provides methods for watching changes, transaction management, and range queries.
type Storage interface {
	// Watch streams changes for a specific key or prefix until ctx is done.
	// Options:
	//   - watch.WithPrefix: watch for changes on keys with the specified prefix
	Watch(ctx context.Context, key []byte, opts ...watch.Option) (<-chan watch.Event, error)

	// Tx creates a new transaction.
	// The context manages timeouts and cancellation for the transaction.
	Tx(ctx context.Context) txPkg.Tx

	// Range queries a range of keys with optional filtering.
	// Options:
	//   - WithPrefix: filter keys by prefix, it must end with "/"; defaults to "/"
	//   - WithLimit: limit the number of results returned
	Range(ctx context.Context, opts ...RangeOption) ([]kv.KeyValue, error)
}

// storageOptions contains configuration options for storage instances.
type storageOptions struct {
	logger *zap.Logger
}

// Option is a function that configures storage options.
type Option func(*storageOptions)

// WithLogger sets the logger used to report failed driver calls.
func WithLogger(logger *zap.Logger) Option {
	return func(opts *storageOptions) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// storage is the concrete implementation of the Storage interface.
type storage struct {
	driver driver.Driver // Underlying storage driver.
	logger *zap.Logger
}

// Watch implements the Storage interface for watching key changes.
// The underlying driver watch is released when ctx is done or the driver
// closes its stream, whichever comes first.
func (s storage) Watch(ctx context.Context, key []byte, opts ...watch.Option) (<-chan watch.Event, error) {
	events, cancel, err := s.driver.Watch(ctx, key, opts...)
	if err != nil {
		s.logger.Debug("watch failed", zap.ByteString("key", key), zap.Error(err))
		return nil, fmt.Errorf("watch failed: %w", err)
	}

	out := make(chan watch.Event)

	go func() {
		defer close(out)
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}

				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Tx implements the Storage interface for transaction creation.
func (s storage) Tx(ctx context.Context) txPkg.Tx {
	return newTx(ctx, s.driver, s.logger)
}

// Range implements the Storage interface for range queries.
// Without a prefix every key under "/" is returned.
func (s storage) Range(ctx context.Context, opts ...RangeOption) ([]kv.KeyValue, error) {
	options := rangeOptions{Prefix: "/", Limit: 0}
	for _, opt := range opts {
		opt(&options)
	}

	prefix := []byte(options.Prefix)
	if !operation.IsPrefix(prefix) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrefix, options.Prefix)
	}

	resp, err := s.Tx(ctx).Then(operation.Get(prefix, operation.WithLimit(options.Limit))).Commit()
	if err != nil {
		return nil, fmt.Errorf("range failed: %w", err)
	}

	return resp.Values(), nil
}

// NewStorage creates a new Storage instance with the specified driver.
// Optional Option parameters can be provided to configure the storage.
func NewStorage(driver driver.Driver, opts ...Option) Storage {
	options := storageOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&options)
	}

	return &storage{
		driver: driver,
		logger: options.logger,
	}
}

// tx is the internal implementation of the Tx interface.
type tx struct {
	driver driver.Driver
	ctx    context.Context //nolint:containedctx // Context is stored for transaction execution
	logger *zap.Logger

	predicates option.Generic[[]predicate.Predicate]
	thenOps    option.Generic[[]operation.Operation]
	elseOps    option.Generic[[]operation.Operation]
}

// newTx creates a new transaction builder with the given driver and context.
func newTx(ctx context.Context, driver driver.Driver, logger *zap.Logger) txPkg.Tx {
	return &tx{
		driver:     driver,
		ctx:        ctx,
		logger:     logger,
		predicates: option.None[[]predicate.Predicate](),
		thenOps:    option.None[[]operation.Operation](),
		elseOps:    option.None[[]operation.Operation](),
	}
}

// If adds predicates to the transaction condition.
// Empty predicate list means always true (unconditional execution).
// If should be called before Then/Else.
func (tb *tx) If(predicates ...predicate.Predicate) txPkg.Tx {
	if tb.predicates.IsSome() {
		panic("predicates are already set")
	} else if tb.thenOps.IsSome() || tb.elseOps.IsSome() {
		panic("If can only be called before Then/Else")
	}

	tb.predicates = option.Some(predicates)

	return tb
}

// Then adds operations to execute if predicates evaluate to true.
// Then can only be called before Else.
func (tb *tx) Then(operations ...operation.Operation) txPkg.Tx {
	if tb.thenOps.IsSome() {
		panic("then operations are already set")
	} else if tb.elseOps.IsSome() {
		panic("Then can only be called before Else")
	}

	tb.thenOps = option.Some(operations)

	return tb
}

// Else adds operations to execute if predicates evaluate to false.
// This is optional.
func (tb *tx) Else(operations ...operation.Operation) txPkg.Tx {
	if tb.elseOps.IsSome() {
		panic("else operations are already set")
	}

	tb.elseOps = option.Some(operations)

	return tb
}

// Commit atomically executes the transaction by delegating to the driver.
func (tb *tx) Commit() (txPkg.Response, error) {
	resp, err := tb.driver.Execute(
		tb.ctx,
		tb.predicates.UnwrapOr(nil),
		tb.thenOps.UnwrapOr(nil),
		tb.elseOps.UnwrapOr(nil),
	)
	if err != nil {
		tb.logger.Debug("tx execute failed", zap.Error(err))
		return txPkg.Response{}, fmt.Errorf("tx execute failed: %w", err)
	}

	return resp, nil
}
