// Package dummy provides a base in-memory implementation
// of the storage driver interface for demonstration and tests.
package dummy

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/playhouse-bot/go-storage/driver"
	"github.com/playhouse-bot/go-storage/kv"
	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/predicate"
	"github.com/playhouse-bot/go-storage/tx"
	"github.com/playhouse-bot/go-storage/watch"
)

type watcher struct {
	ch     chan watch.Event
	prefix bool
}

type watcherSet struct {
	lastID   uint64
	watchers map[uint64]watcher
}

// Driver is a thread-safe in-memory storage driver.
// Every mutating transaction bumps a single store-wide revision, like etcd.
type Driver struct {
	mu          sync.RWMutex
	storage     map[string]kv.KeyValue
	watchers    map[string]*watcherSet
	modRevision int64
	executions  int64
}

var _ driver.Driver = (*Driver)(nil)

// New returns an empty in-memory driver.
func New() *Driver {
	return &Driver{
		mu:          sync.RWMutex{},
		storage:     make(map[string]kv.KeyValue),
		watchers:    make(map[string]*watcherSet),
		modRevision: 1,
		executions:  0,
	}
}

// Execute evaluates predicates and applies thenOps or elseOps under a single lock.
func (d *Driver) Execute(
	_ context.Context,
	predicates []predicate.Predicate,
	thenOps []operation.Operation,
	elseOps []operation.Operation,
) (tx.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.executions++

	ops := elseOps

	success := d.checkPredicates(predicates)
	if success {
		ops = thenOps
	}

	return tx.Response{
		Succeeded: success,
		Results:   d.executeOps(ops),
	}, nil
}

// Executions returns how many transactions were executed so far.
func (d *Driver) Executions() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.executions
}

// Revision returns the revision the next mutating transaction will be stamped with.
func (d *Driver) Revision() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.modRevision
}

// Watch registers a watcher for key. A key ending with "/" or the
// [watch.WithPrefix] option watches every key under it.
func (d *Driver) Watch(ctx context.Context, key []byte, opts ...watch.Option) (<-chan watch.Event, func(), error) {
	options := watch.Apply(opts...)
	ch, cancel := d.addWatcher(ctx, string(key), options)

	return ch, cancel, nil
}

func (d *Driver) put(key string, value []byte) {
	d.storage[key] = kv.KeyValue{
		Key:         []byte(key),
		Value:       bytes.Clone(value),
		ModRevision: d.modRevision,
	}

	d.notifyWatchers(key)
}

func (d *Driver) delete(key string) (kv.KeyValue, bool) {
	prevKv, ok := d.storage[key]
	if ok {
		delete(d.storage, key)
		d.notifyWatchers(key)
	}

	return prevKv, ok
}

// checkPredicates checks if the given predicates are satisfied by
// the current state of the storage.
func (d *Driver) checkPredicates(predicates []predicate.Predicate) bool {
	for _, pred := range predicates {
		val, exists := d.storage[string(pred.Key())]
		if !predicate.Holds(pred, val.Value, val.ModRevision, exists) {
			return false
		}
	}

	return true
}

func (d *Driver) getAllByPrefix(prefix string, limit int) []kv.KeyValue {
	var prefixValues []kv.KeyValue

	for k, v := range d.storage {
		if strings.HasPrefix(k, prefix) {
			prefixValues = append(prefixValues, v)
		}
	}

	sort.Slice(prefixValues, func(i, j int) bool {
		return bytes.Compare(prefixValues[i].Key, prefixValues[j].Key) < 0
	})

	if limit > 0 && len(prefixValues) > limit {
		prefixValues = prefixValues[:limit]
	}

	return prefixValues
}

func (d *Driver) executeOps(ops []operation.Operation) []tx.RequestResponse {
	result := make([]tx.RequestResponse, 0, len(ops))
	mutable := false

	for _, eop := range ops {
		var values []kv.KeyValue

		switch eop.Type() {
		case operation.TypePut:
			d.put(string(eop.Key()), eop.Value())

			mutable = true
		case operation.TypeDelete:
			if eop.IsPrefix() {
				values = d.getAllByPrefix(string(eop.Key()), 0)
				for _, pv := range values {
					d.delete(string(pv.Key))
				}
			} else if val, ok := d.delete(string(eop.Key())); ok {
				values = []kv.KeyValue{val}
			}

			mutable = mutable || len(values) > 0
		case operation.TypeGet:
			if eop.IsPrefix() {
				values = d.getAllByPrefix(string(eop.Key()), eop.Limit())
			} else if val, ok := d.storage[string(eop.Key())]; ok {
				values = []kv.KeyValue{val}
			}
		}

		result = append(result, tx.RequestResponse{
			Values: values,
		})
	}

	if mutable {
		d.modRevision++
	}

	return result
}

func (d *Driver) addWatcher(ctx context.Context, key string, options watch.Options) (chan watch.Event, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, exists := d.watchers[key]
	if !exists {
		set = &watcherSet{lastID: 0, watchers: make(map[uint64]watcher)}
		d.watchers[key] = set
	}

	set.lastID++

	wid := set.lastID
	wch := make(chan watch.Event, options.BufferSize)

	set.watchers[wid] = watcher{
		ch:     wch,
		prefix: options.Prefix || operation.IsPrefix([]byte(key)),
	}

	var (
		stopOnce = sync.Once{}
		stopped  = make(chan struct{})
	)

	go func() {
		defer func() {
			d.mu.Lock()
			defer d.mu.Unlock()

			delete(set.watchers, wid)

			if len(set.watchers) == 0 {
				delete(d.watchers, key)
			}

			close(wch)
		}()

		select {
		case <-ctx.Done():
		case <-stopped:
		}
	}()

	return wch, func() { stopOnce.Do(func() { close(stopped) }) }
}

// notifyWatchers sends a watch event to all watchers
// whose key or prefix matches the given key. Slow watchers miss events
// rather than block writers.
func (d *Driver) notifyWatchers(key string) {
	for watched, set := range d.watchers {
		for _, w := range set.watchers {
			if key != watched && !(w.prefix && strings.HasPrefix(key, watched)) {
				continue
			}

			select {
			case w.ch <- watch.Event{Prefix: []byte(watched)}:
			default:
			}
		}
	}
}
