package redis

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/playhouse-bot/go-storage/kv"
	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/tx"
)

const (
	fieldValue    = "value"
	fieldRevision = "rev"

	// pendingRevision marks records written by the attempt itself until EXEC
	// allocates their revision.
	pendingRevision int64 = -1
)

// commitScript bumps the revision counter (KEYS[1]) and applies the changed
// records (KEYS[2..]) with it. ARGV[1] is the events channel, followed by one
// (kind, value, key) triple per record.
var commitScript = goredis.NewScript(`
local rev = redis.call('INCR', KEYS[1])
for i = 2, #KEYS do
	local base = (i - 2) * 3 + 1
	if ARGV[base + 1] == 'put' then
		redis.call('HSET', KEYS[i], 'value', ARGV[base + 2], 'rev', rev)
	else
		redis.call('DEL', KEYS[i])
	end
	redis.call('PUBLISH', ARGV[1], ARGV[base + 3])
end
return rev
`)

// snapshot is the view of a single transaction attempt: records read under
// WATCH overlaid with the writes the attempt made so far.
type snapshot struct {
	ctx    context.Context //nolint:containedctx // Attempt-scoped.
	driver *Driver
	rtx    *goredis.Tx

	watched map[string]struct{}
	overlay map[string]*kv.KeyValue
	changed []string
}

func newSnapshot(ctx context.Context, d *Driver, rtx *goredis.Tx) *snapshot {
	return &snapshot{
		ctx:     ctx,
		driver:  d,
		rtx:     rtx,
		watched: make(map[string]struct{}),
		overlay: make(map[string]*kv.KeyValue),
		changed: nil,
	}
}

func (s *snapshot) get(key []byte) (kv.KeyValue, bool, error) {
	if record, ok := s.overlay[string(key)]; ok {
		if record == nil {
			return kv.KeyValue{}, false, nil
		}

		return *record, true, nil
	}

	recordKey := s.driver.recordKey(key)

	if _, ok := s.watched[recordKey]; !ok {
		if err := s.rtx.Watch(s.ctx, recordKey).Err(); err != nil {
			return kv.KeyValue{}, false, fmt.Errorf("failed to watch %q: %w", key, err)
		}

		s.watched[recordKey] = struct{}{}
	}

	fields, err := s.rtx.HGetAll(s.ctx, recordKey).Result()
	if err != nil {
		return kv.KeyValue{}, false, fmt.Errorf("failed to read %q: %w", key, err)
	}

	if len(fields) == 0 {
		return kv.KeyValue{}, false, nil
	}

	revision, err := strconv.ParseInt(fields[fieldRevision], 10, 64)
	if err != nil {
		return kv.KeyValue{}, false, fmt.Errorf("corrupted revision of %q: %w", key, err)
	}

	return kv.KeyValue{Key: bytes.Clone(key), Value: []byte(fields[fieldValue]), ModRevision: revision}, true, nil
}

// scan returns the live records under prefix sorted by key. Only the records
// found are watched: a key created under prefix after the scan does not
// invalidate the attempt.
func (s *snapshot) scan(prefix []byte, limit int) ([]kv.KeyValue, error) {
	recordPrefix := s.driver.recordKey(nil)
	pattern := escapeGlob(recordPrefix+string(prefix)) + "*"
	keys := make(map[string]struct{})

	var cursor uint64

	for {
		batch, next, err := s.rtx.Scan(s.ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %q: %w", prefix, err)
		}

		for _, key := range batch {
			keys[strings.TrimPrefix(key, recordPrefix)] = struct{}{}
		}

		if next == 0 {
			break
		}

		cursor = next
	}

	for key := range s.overlay {
		if strings.HasPrefix(key, string(prefix)) {
			keys[key] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}

	slices.Sort(sorted)

	var values []kv.KeyValue

	for _, key := range sorted {
		if limit > 0 && len(values) == limit {
			break
		}

		record, ok, err := s.get([]byte(key))
		if err != nil {
			return nil, err
		}

		if ok {
			values = append(values, record)
		}
	}

	return values, nil
}

func (s *snapshot) set(key []byte, record *kv.KeyValue) {
	if _, ok := s.overlay[string(key)]; !ok {
		s.changed = append(s.changed, string(key))
	}

	s.overlay[string(key)] = record
}

func (s *snapshot) apply(ops []operation.Operation) ([]tx.RequestResponse, error) {
	results := make([]tx.RequestResponse, 0, len(ops))

	for _, op := range ops {
		var (
			values []kv.KeyValue
			err    error
		)

		switch op.Type() {
		case operation.TypeGet:
			values, err = s.read(op)
		case operation.TypePut:
			s.set(op.Key(), &kv.KeyValue{
				Key:         bytes.Clone(op.Key()),
				Value:       bytes.Clone(op.Value()),
				ModRevision: pendingRevision,
			})
		case operation.TypeDelete:
			values, err = s.read(op)
			for _, removed := range values {
				s.set(removed.Key, nil)
			}
		}

		if err != nil {
			return nil, err
		}

		results = append(results, tx.RequestResponse{Values: values})
	}

	return results, nil
}

func (s *snapshot) read(op operation.Operation) ([]kv.KeyValue, error) {
	if op.IsPrefix() {
		limit := 0
		if op.Type() == operation.TypeGet {
			limit = op.Limit()
		}

		return s.scan(op.Key(), limit)
	}

	record, ok, err := s.get(op.Key())
	if err != nil || !ok {
		return nil, err
	}

	return []kv.KeyValue{record}, nil
}

// commit applies the attempt's writes in MULTI/EXEC and stamps the allocated
// revision on the results read from the attempt's own writes. A read-only
// attempt still runs EXEC so a concurrent writer invalidates its reads.
func (s *snapshot) commit(results []tx.RequestResponse) error {
	if len(s.changed) == 0 && len(s.watched) == 0 {
		return nil
	}

	var applied *goredis.Cmd

	_, err := s.rtx.TxPipelined(s.ctx, func(pipe goredis.Pipeliner) error {
		if len(s.changed) == 0 {
			pipe.Exists(s.ctx, s.driver.revisionKey())
			return nil
		}

		keys := make([]string, 0, len(s.changed)+1)
		args := make([]any, 0, 3*len(s.changed)+1)

		keys = append(keys, s.driver.revisionKey())
		args = append(args, s.driver.eventsChannel())

		for _, key := range s.changed {
			keys = append(keys, s.driver.recordKey([]byte(key)))

			if record := s.overlay[key]; record == nil {
				args = append(args, "del", "", key)
			} else {
				args = append(args, "put", record.Value, key)
			}
		}

		applied = commitScript.Eval(s.ctx, pipe, keys, args...)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	if applied == nil {
		return nil
	}

	revision, err := applied.Int64()
	if err != nil {
		return fmt.Errorf("failed to read allocated revision: %w", err)
	}

	for i := range results {
		for j := range results[i].Values {
			if results[i].Values[j].ModRevision == pendingRevision {
				results[i].Values[j].ModRevision = revision
			}
		}
	}

	return nil
}

func escapeGlob(s string) string {
	var b strings.Builder

	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}

		b.WriteRune(r)
	}

	return b.String()
}
