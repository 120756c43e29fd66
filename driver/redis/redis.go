// Package redis provides a Redis implementation of the storage driver
// interface on top of go-redis.
//
// Every record is a hash {value, rev} under <namespace>kv:<key>. A single
// counter at <namespace>meta:revision is bumped by each mutating transaction
// and stamped on the records it writes, giving etcd-like mod revisions.
// A transaction WATCHes each record right before reading it, evaluates
// predicates, then applies its writes in MULTI/EXEC through a script that
// allocates the revision. Only a concurrent write to a record the
// transaction read makes EXEC fail; the transaction is then replayed.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/playhouse-bot/go-storage/driver"
	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/predicate"
	"github.com/playhouse-bot/go-storage/tx"
)

const (
	// DefaultNamespace prefixes every key the driver touches.
	DefaultNamespace = "gamestore:"

	defaultWatchMaxAttempts = 10
	scanCount               = 100
)

// ErrContention is returned when a transaction lost the race to concurrent
// writers on every attempt. It matches [driver.ErrContention].
var ErrContention = fmt.Errorf("redis: transaction retries exhausted: %w", driver.ErrContention)

var _ driver.Driver = (*Driver)(nil)

// Driver is a Redis implementation of the storage driver interface.
type Driver struct {
	client      goredis.UniversalClient
	namespace   string
	maxAttempts int
	logger      *zap.Logger
}

// Option configures the driver.
type Option func(*Driver)

// WithNamespace sets the key namespace.
func WithNamespace(namespace string) Option {
	return func(d *Driver) {
		d.namespace = namespace
	}
}

// WithMaxAttempts sets how many times a transaction is replayed after EXEC
// fails because of a concurrent writer.
func WithMaxAttempts(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a driver over a connected go-redis client.
func New(client goredis.UniversalClient, opts ...Option) *Driver {
	d := &Driver{
		client:      client,
		namespace:   DefaultNamespace,
		maxAttempts: defaultWatchMaxAttempts,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Driver) recordKey(key []byte) string {
	return d.namespace + "kv:" + string(key)
}

func (d *Driver) revisionKey() string {
	return d.namespace + "meta:revision"
}

func (d *Driver) eventsChannel() string {
	return d.namespace + "events"
}

// Execute evaluates predicates and applies thenOps or elseOps atomically.
func (d *Driver) Execute(
	ctx context.Context,
	predicates []predicate.Predicate,
	thenOps []operation.Operation,
	elseOps []operation.Operation,
) (tx.Response, error) {
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		var resp tx.Response

		err := d.client.Watch(ctx, func(rtx *goredis.Tx) error {
			var err error

			resp, err = d.execute(ctx, rtx, predicates, thenOps, elseOps)

			return err
		})

		switch {
		case errors.Is(err, goredis.TxFailedErr):
			d.logger.Debug("redis transaction raced, replaying", zap.Int("attempt", attempt))
			continue
		case err != nil:
			return tx.Response{}, fmt.Errorf("redis transaction failed: %w", err)
		}

		return resp, nil
	}

	return tx.Response{}, fmt.Errorf("%w after %d attempts", ErrContention, d.maxAttempts)
}

func (d *Driver) execute(
	ctx context.Context,
	rtx *goredis.Tx,
	predicates []predicate.Predicate,
	thenOps []operation.Operation,
	elseOps []operation.Operation,
) (tx.Response, error) {
	view := newSnapshot(ctx, d, rtx)

	succeeded := true

	for _, pred := range predicates {
		current, exists, err := view.get(pred.Key())
		if err != nil {
			return tx.Response{}, err
		}

		if !predicate.Holds(pred, current.Value, current.ModRevision, exists) {
			succeeded = false
			break
		}
	}

	ops := elseOps
	if succeeded {
		ops = thenOps
	}

	results, err := view.apply(ops)
	if err != nil {
		return tx.Response{}, err
	}

	if err := view.commit(results); err != nil {
		return tx.Response{}, err
	}

	return tx.Response{Succeeded: succeeded, Results: results}, nil
}
