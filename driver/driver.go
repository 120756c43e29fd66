// Package driver defines the interface for storage driver implementations.
// It provides a common interface for different storage backends like etcd,
// Redis and Tarantool.
package driver

import (
	"context"
	"errors"

	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/predicate"
	"github.com/playhouse-bot/go-storage/tx"
	"github.com/playhouse-bot/go-storage/watch"
)

// ErrContention is wrapped by drivers that give up on a transaction because
// concurrent writers kept invalidating it. Nothing was applied; the caller
// may run the transaction again.
var ErrContention = errors.New("transaction lost to concurrent writers")

// Driver is the interface that storage drivers must implement.
// It provides low-level operations for transaction execution and watch functionality.
type Driver interface {
	// Execute executes a transactional operation with conditional logic.
	// The transaction will execute thenOps if all predicates evaluate to true,
	// otherwise it will execute elseOps. Predicate evaluation and the chosen
	// operations are applied atomically.
	Execute(
		ctx context.Context,
		predicates []predicate.Predicate,
		thenOps []operation.Operation,
		elseOps []operation.Operation,
	) (tx.Response, error)

	// Watch establishes a watch stream for changes to a specific key or prefix.
	// The returned channel receives events as changes occur and is closed once
	// ctx is done or the returned cancel function is called.
	Watch(ctx context.Context, key []byte, opts ...watch.Option) (<-chan watch.Event, func(), error)
}
