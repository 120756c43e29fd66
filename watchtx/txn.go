package watchtx

import (
	"bytes"
	"context"
	"fmt"

	"github.com/playhouse-bot/go-storage"
	"github.com/playhouse-bot/go-storage/kv"
	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/predicate"
	"github.com/playhouse-bot/go-storage/tx"
)

type txnState int

const (
	txnOpen txnState = iota
	txnCommitted
	txnDiscarded
)

// Txn is the transaction handle of a single attempt. Reads go straight to the
// store, writes are buffered until Commit. A Txn must not be shared between
// goroutines or kept after the operation returns.
type Txn struct {
	ctx      context.Context //nolint:containedctx // Attempt-scoped.
	storage  storage.Storage
	key      []byte
	revision int64
	exists   bool
	attempt  int

	pending []operation.Operation
	writes  map[string]operation.Operation
	state   txnState
}

// begin opens an attempt: it reads the watched key and remembers its revision.
func begin(ctx context.Context, strg storage.Storage, key []byte, attempt int) (*Txn, error) {
	resp, err := strg.Tx(ctx).Then(operation.Get(key)).Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to watch key %q: %w", key, err)
	}

	txn := &Txn{
		ctx:      ctx,
		storage:  strg,
		key:      key,
		revision: 0,
		exists:   false,
		attempt:  attempt,
		pending:  nil,
		writes:   make(map[string]operation.Operation),
		state:    txnOpen,
	}

	if current, ok := kv.Find(resp.Values(), key); ok {
		txn.revision = current.ModRevision
		txn.exists = true
	}

	return txn, nil
}

// Key returns the watched key.
func (t *Txn) Key() []byte {
	return t.key
}

// Revision returns the mod revision of the watched key at the start of the attempt.
func (t *Txn) Revision() int64 {
	return t.revision
}

// Attempt returns the 1-based number of the attempt this Txn belongs to.
func (t *Txn) Attempt() int {
	return t.attempt
}

// Released reports whether the Txn was committed or discarded.
func (t *Txn) Released() bool {
	return t.state != txnOpen
}

// Get reads a single key. Writes buffered in this Txn are visible to it.
func (t *Txn) Get(key []byte) (kv.KeyValue, bool, error) {
	if t.Released() {
		return kv.KeyValue{}, false, ErrReleased
	}

	if operation.IsPrefix(key) {
		return kv.KeyValue{}, false, fmt.Errorf("%w: %q is a prefix", ErrInvalidKey, key)
	}

	if buffered, ok := t.writes[string(key)]; ok {
		if buffered.Type() == operation.TypeDelete {
			return kv.KeyValue{}, false, nil
		}

		return kv.KeyValue{Key: key, Value: buffered.Value(), ModRevision: 0}, true, nil
	}

	resp, err := t.storage.Tx(t.ctx).Then(operation.Get(key)).Commit()
	if err != nil {
		return kv.KeyValue{}, false, fmt.Errorf("failed to get %q: %w", key, err)
	}

	found, ok := kv.Find(resp.Values(), key)

	return found, ok, nil
}

// Exists reports whether key is present, taking buffered writes into account.
func (t *Txn) Exists(key []byte) (bool, error) {
	_, ok, err := t.Get(key)
	return ok, err
}

// Put buffers a write of value under key.
func (t *Txn) Put(key []byte, value []byte) {
	t.buffer(operation.Put(bytes.Clone(key), bytes.Clone(value)))
}

// Delete buffers removal of key.
func (t *Txn) Delete(key []byte) {
	t.buffer(operation.Delete(bytes.Clone(key)))
}

// Pending returns the number of buffered writes.
func (t *Txn) Pending() int {
	return len(t.pending)
}

func (t *Txn) buffer(op operation.Operation) {
	if t.Released() {
		panic("watchtx: write to a released transaction")
	}

	if op.IsPrefix() {
		panic(fmt.Sprintf("watchtx: prefix key %q in a watched transaction", op.Key()))
	}

	t.pending = append(t.pending, op)
	t.writes[string(op.Key())] = op
}

// Commit applies the buffered writes atomically if the watched key still has
// the revision observed at the start of the attempt. Otherwise nothing is
// applied and ErrConflict is returned. The Txn is released either way.
func (t *Txn) Commit() (tx.Response, error) {
	if t.Released() {
		return tx.Response{}, ErrReleased
	}

	resp, err := t.storage.Tx(t.ctx).
		If(predicate.VersionEqual(t.key, t.revision)).
		Then(t.pending...).
		Commit()

	switch {
	case err != nil:
		t.Discard()
		return tx.Response{}, fmt.Errorf("failed to commit watched transaction: %w", err)
	case !resp.Succeeded:
		t.Discard()
		return tx.Response{}, ErrConflict
	}

	t.state = txnCommitted
	t.pending = nil

	return resp, nil
}

// Discard drops the buffered writes and releases the Txn.
func (t *Txn) Discard() {
	t.pending = nil
	t.writes = map[string]operation.Operation{}
	t.state = txnDiscarded
}

// finish commits writes the operation left pending. A Txn with nothing to
// write is released without a round trip.
func (t *Txn) finish() error {
	if t.Released() {
		return nil
	}

	if len(t.pending) == 0 {
		t.state = txnCommitted
		return nil
	}

	_, err := t.Commit()

	return err
}

// release ends the attempt on every exit path.
func (t *Txn) release() {
	if !t.Released() {
		t.Discard()
	}
}
