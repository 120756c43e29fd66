package tkv //nolint:testpackage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/playhouse-bot/go-storage/kv"
	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/predicate"
	"github.com/playhouse-bot/go-storage/tx"
)

func TestTxnRequest_Encode(t *testing.T) {
	t.Parallel()

	req := newTxnRequest(
		[]predicate.Predicate{predicate.VersionEqual([]byte("/games/a"), 7)},
		[]operation.Operation{operation.Put([]byte("/games/a"), []byte("lobby"))},
		[]operation.Operation{operation.Get([]byte("/games/a"))},
	)

	data, err := msgpack.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &decoded))

	preds, ok := decoded["predicates"].([]any)
	require.True(t, ok)
	require.Len(t, preds, 1)

	pred, ok := preds[0].([]any)
	require.True(t, ok)
	require.Len(t, pred, 4)
	assert.Equal(t, "mod_revision", pred[0])
	assert.Equal(t, "==", pred[1])
	assert.EqualValues(t, 7, pred[2])
	assert.Equal(t, "/games/a", pred[3])

	assert.Equal(t, []any{[]any{"put", "/games/a", "lobby"}}, decoded["on_success"])
	assert.Equal(t, []any{[]any{"get", "/games/a"}}, decoded["on_failure"])
}

func TestTxnRequest_EncodeUnknown(t *testing.T) {
	t.Parallel()

	_, err := msgpack.Marshal(newTxnRequest(
		[]predicate.Predicate{rawPredicate{op: predicate.Op(99), target: predicate.TargetValue}},
		nil, nil,
	))
	require.ErrorIs(t, err, ErrUnknownOperator)

	_, err = msgpack.Marshal(newTxnRequest(
		[]predicate.Predicate{rawPredicate{op: predicate.OpEqual, target: predicate.Target(99)}},
		nil, nil,
	))
	require.ErrorIs(t, err, ErrUnknownTarget)
}

type rawPredicate struct {
	op     predicate.Op
	target predicate.Target
}

func (p rawPredicate) Key() []byte              { return []byte("/k") }
func (p rawPredicate) Operation() predicate.Op  { return p.op }
func (p rawPredicate) Target() predicate.Target { return p.target }
func (p rawPredicate) Value() any               { return nil }

func TestTxnResponse_Decode(t *testing.T) {
	t.Parallel()

	wire := map[string]any{
		"data": map[string]any{
			"is_success": true,
			"responses": []any{
				[]any{},
				[]any{
					map[string]any{"path": "/games/a", "mod_revision": 5, "value": "lobby"},
					map[string]any{"path": "/games/b", "mod_revision": 0, "value": "full"},
				},
			},
		},
		"revision": 9,
	}

	data, err := msgpack.Marshal(wire)
	require.NoError(t, err)

	var decoded txnResponse
	require.NoError(t, msgpack.Unmarshal(data, &decoded))

	resp := decoded.asTxnResponse()
	assert.True(t, resp.Succeeded)
	require.Len(t, resp.Results, 2)
	assert.Empty(t, resp.Results[0].Values)
	assert.Equal(t, []kv.KeyValue{
		{Key: []byte("/games/a"), Value: []byte("lobby"), ModRevision: 5},
		{Key: []byte("/games/b"), Value: []byte("full"), ModRevision: 9},
	}, resp.Results[1].Values, "missing mod revision falls back to the response revision")
}

func TestApplyLimits(t *testing.T) {
	t.Parallel()

	values := []kv.KeyValue{{Key: []byte("/a")}, {Key: []byte("/b")}, {Key: []byte("/c")}} //nolint:exhaustruct
	resp := tx.Response{
		Succeeded: true,
		Results:   []tx.RequestResponse{{Values: values}, {Values: values}},
	}

	limited := applyLimits(resp, []operation.Operation{
		operation.Get([]byte("/"), operation.WithLimit(2)),
		operation.Get([]byte("/")),
	})

	assert.Len(t, limited.Results[0].Values, 2)
	assert.Len(t, limited.Results[1].Values, 3)
}
