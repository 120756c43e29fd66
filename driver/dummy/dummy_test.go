package dummy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playhouse-bot/go-storage/driver/dummy"
	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/predicate"
	"github.com/playhouse-bot/go-storage/watch"
)

const (
	defaultWaitTimeout = 5 * time.Second
)

func put(ctx context.Context, t *testing.T, d *dummy.Driver, key, value string) int64 {
	t.Helper()

	_, err := d.Execute(ctx, nil, []operation.Operation{
		operation.Put([]byte(key), []byte(value)),
	}, nil)
	require.NoError(t, err)

	resp, err := d.Execute(ctx, nil, []operation.Operation{operation.Get([]byte(key))}, nil)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	require.Len(t, resp.Results[0].Values, 1)

	return resp.Results[0].Values[0].ModRevision
}

func TestDriver_PutGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	driver := dummy.New()

	response, err := driver.Execute(ctx, nil, []operation.Operation{
		operation.Put([]byte("/games/a"), []byte("lobby")),
	}, nil)
	require.NoError(t, err)
	assert.True(t, response.Succeeded)
	require.Len(t, response.Results, 1)
	assert.Empty(t, response.Results[0].Values, "put returns no values")

	response, err = driver.Execute(ctx, nil, []operation.Operation{
		operation.Get([]byte("/games/a")),
		operation.Get([]byte("/games/missing")),
	}, nil)
	require.NoError(t, err)
	require.Len(t, response.Results, 2)
	require.Len(t, response.Results[0].Values, 1)
	assert.Equal(t, []byte("lobby"), response.Results[0].Values[0].Value)
	assert.Positive(t, response.Results[0].Values[0].ModRevision)
	assert.Empty(t, response.Results[1].Values)
}

func TestDriver_ValueIsCopied(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	driver := dummy.New()

	value := []byte("lobby")
	_, err := driver.Execute(ctx, nil, []operation.Operation{operation.Put([]byte("/k"), value)}, nil)
	require.NoError(t, err)

	value[0] = 'X'

	resp, err := driver.Execute(ctx, nil, []operation.Operation{operation.Get([]byte("/k"))}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("lobby"), resp.Results[0].Values[0].Value)
}

func TestDriver_Prefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	driver := dummy.New()

	put(ctx, t, driver, "/games/c", "3")
	put(ctx, t, driver, "/games/a", "1")
	put(ctx, t, driver, "/games/b", "2")
	put(ctx, t, driver, "/players/a", "x")

	resp, err := driver.Execute(ctx, nil, []operation.Operation{operation.Get([]byte("/games/"))}, nil)
	require.NoError(t, err)
	require.Len(t, resp.Results[0].Values, 3)
	assert.Equal(t, []byte("/games/a"), resp.Results[0].Values[0].Key, "prefix results are sorted")
	assert.Equal(t, []byte("/games/c"), resp.Results[0].Values[2].Key)

	resp, err = driver.Execute(ctx, nil, []operation.Operation{
		operation.Get([]byte("/games/"), operation.WithLimit(2)),
	}, nil)
	require.NoError(t, err)
	assert.Len(t, resp.Results[0].Values, 2)

	resp, err = driver.Execute(ctx, nil, []operation.Operation{operation.Delete([]byte("/games/"))}, nil)
	require.NoError(t, err)
	assert.Len(t, resp.Results[0].Values, 3, "prefix delete returns removed pairs")

	resp, err = driver.Execute(ctx, nil, []operation.Operation{operation.Get([]byte("/"))}, nil)
	require.NoError(t, err)
	require.Len(t, resp.Results[0].Values, 1)
	assert.Equal(t, []byte("/players/a"), resp.Results[0].Values[0].Key)
}

func TestDriver_RevisionBumpsOncePerMutatingTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	driver := dummy.New()

	before := driver.Revision()

	_, err := driver.Execute(ctx, nil, []operation.Operation{
		operation.Put([]byte("/a"), []byte("1")),
		operation.Put([]byte("/b"), []byte("2")),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, before+1, driver.Revision())

	_, err = driver.Execute(ctx, nil, []operation.Operation{operation.Get([]byte("/a"))}, nil)
	require.NoError(t, err)
	assert.Equal(t, before+1, driver.Revision(), "reads do not bump the revision")

	_, err = driver.Execute(ctx, nil, []operation.Operation{operation.Delete([]byte("/missing"))}, nil)
	require.NoError(t, err)
	assert.Equal(t, before+1, driver.Revision(), "deleting nothing does not bump the revision")

	assert.Equal(t, int64(3), driver.Executions())
}

func TestDriver_Predicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	driver := dummy.New()

	key := []byte("/games/p")
	missing := []byte("/games/none")
	rev := put(ctx, t, driver, string(key), "value")

	tests := []struct {
		name     string
		pred     predicate.Predicate
		expected bool
	}{
		{"version equal", predicate.VersionEqual(key, rev), true},
		{"version equal stale", predicate.VersionEqual(key, rev-1), false},
		{"version equal missing", predicate.VersionEqual(missing, rev), false},
		{"version equal zero on missing", predicate.VersionEqual(missing, 0), true},
		{"version not equal", predicate.VersionNotEqual(key, rev+1), true},
		{"version not equal same", predicate.VersionNotEqual(key, rev), false},
		{"version greater", predicate.VersionGreater(key, rev-1), true},
		{"version greater same", predicate.VersionGreater(key, rev), false},
		{"version less", predicate.VersionLess(key, rev+1), true},
		{"version less missing", predicate.VersionLess(missing, 1), true},
		{"exists", predicate.Exists(key), true},
		{"exists missing", predicate.Exists(missing), false},
		{"value equal string", predicate.ValueEqual(key, "value"), true},
		{"value equal bytes", predicate.ValueEqual(key, []byte("value")), true},
		{"value equal other", predicate.ValueEqual(key, "other"), false},
		{"value equal missing", predicate.ValueEqual(missing, "value"), false},
		{"value not equal", predicate.ValueNotEqual(key, "other"), true},
		{"value not equal same", predicate.ValueNotEqual(key, "value"), false},
		{"value not equal missing", predicate.ValueNotEqual(missing, "value"), true},
		{"value greater unsupported", predicateOf(key, predicate.OpGreater, predicate.TargetValue, "a"), false},
		{"version int value", predicateOf(key, predicate.OpEqual, predicate.TargetVersion, int(rev)), false},
		{"value int value", predicateOf(key, predicate.OpEqual, predicate.TargetValue, 42), false},
		{"unknown target", predicateOf(key, predicate.OpEqual, predicate.Target(99), rev), false},
		{"unknown op", predicateOf(key, predicate.Op(99), predicate.TargetVersion, rev), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, err := driver.Execute(ctx, []predicate.Predicate{tt.pred}, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resp.Succeeded)
		})
	}
}

func TestDriver_ElseOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	driver := dummy.New()

	key := []byte("/games/else")
	rev := put(ctx, t, driver, string(key), "old")

	resp, err := driver.Execute(ctx,
		[]predicate.Predicate{predicate.VersionEqual(key, rev+10)},
		[]operation.Operation{operation.Put(key, []byte("then"))},
		[]operation.Operation{operation.Get(key)},
	)
	require.NoError(t, err)
	assert.False(t, resp.Succeeded)
	require.Len(t, resp.Results, 1)
	require.Len(t, resp.Results[0].Values, 1)
	assert.Equal(t, []byte("old"), resp.Results[0].Values[0].Value)
}

func TestDriver_Watch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	driver := dummy.New()

	exactCh, stopExact, err := driver.Watch(ctx, []byte("/games/w"))
	require.NoError(t, err)

	defer stopExact()

	prefixCh, stopPrefix, err := driver.Watch(ctx, []byte("/games/"))
	require.NoError(t, err)

	defer stopPrefix()

	optionCh, stopOption, err := driver.Watch(ctx, []byte("/games/w"), watch.WithPrefix())
	require.NoError(t, err)

	defer stopOption()

	put(ctx, t, driver, "/games/w", "1")
	put(ctx, t, driver, "/games/wx", "2")

	for _, tc := range []struct {
		ch       <-chan watch.Event
		expected []byte
		events   int
	}{
		{exactCh, []byte("/games/w"), 1},
		{prefixCh, []byte("/games/"), 2},
		{optionCh, []byte("/games/w"), 2},
	} {
		for range tc.events {
			select {
			case event := <-tc.ch:
				assert.Equal(t, tc.expected, event.Prefix)
			case <-time.After(defaultWaitTimeout):
				t.Fatal("timeout waiting for watch event")
			}
		}
	}

	select {
	case event := <-exactCh:
		t.Fatalf("unexpected event for exact watcher: %s", event.Prefix)
	default:
	}
}

func TestDriver_WatchStops(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	driver := dummy.New()

	byCtx, _, err := driver.Watch(ctx, []byte("/a"))
	require.NoError(t, err)

	byCancel, stop, err := driver.Watch(context.Background(), []byte("/a"))
	require.NoError(t, err)

	cancel()
	stop()
	stop()

	for _, ch := range []<-chan watch.Event{byCtx, byCancel} {
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channel is closed")
		case <-time.After(defaultWaitTimeout):
			t.Fatal("watch channel was not closed")
		}
	}
}

type mockPredicate struct {
	key    []byte
	op     predicate.Op
	target predicate.Target
	value  any
}

func (m mockPredicate) Key() []byte              { return m.key }
func (m mockPredicate) Operation() predicate.Op  { return m.op }
func (m mockPredicate) Target() predicate.Target { return m.target }
func (m mockPredicate) Value() any               { return m.value }

func predicateOf(key []byte, op predicate.Op, target predicate.Target, value any) predicate.Predicate {
	return mockPredicate{key: key, op: op, target: target, value: value}
}
