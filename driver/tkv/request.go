package tkv

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/predicate"
)

var (
	// ErrUnknownOperation is returned for an operation type the storage has no verb for.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrUnknownOperator is returned for a predicate operator the storage cannot compare with.
	ErrUnknownOperator = errors.New("unknown operator")
	// ErrUnknownTarget is returned for a predicate target the storage cannot compare.
	ErrUnknownTarget = errors.New("unknown target")
)

// EncodingError reports which part of a transaction request failed to encode.
type EncodingError struct {
	Part string
	Err  error
}

// Error returns the error message.
func (e EncodingError) Error() string {
	return fmt.Sprintf("failed to encode %s: %s", e.Part, e.Err)
}

// Unwrap returns the underlying error.
func (e EncodingError) Unwrap() error {
	return e.Err
}

// txnRequest is the single argument of config.storage.txn.
type txnRequest struct {
	Predicates []wirePredicate `msgpack:"predicates"`
	OnSuccess  []wireOperation `msgpack:"on_success"`
	OnFailure  []wireOperation `msgpack:"on_failure"`
}

func newTxnRequest(preds []predicate.Predicate, thenOps, elseOps []operation.Operation) txnRequest {
	req := txnRequest{
		Predicates: make([]wirePredicate, len(preds)),
		OnSuccess:  make([]wireOperation, len(thenOps)),
		OnFailure:  make([]wireOperation, len(elseOps)),
	}

	for i, p := range preds {
		req.Predicates[i] = wirePredicate{p}
	}

	for i, op := range thenOps {
		req.OnSuccess[i] = wireOperation{op}
	}

	for i, op := range elseOps {
		req.OnFailure[i] = wireOperation{op}
	}

	return req
}

// wireOperation encodes as [verb, key] or, for put, [verb, key, value].
type wireOperation struct {
	op operation.Operation
}

var _ msgpack.CustomEncoder = wireOperation{}

func (w wireOperation) EncodeMsgpack(enc *msgpack.Encoder) error {
	var fields []string

	switch w.op.Type() {
	case operation.TypeGet:
		fields = []string{"get", string(w.op.Key())}
	case operation.TypeDelete:
		fields = []string{"delete", string(w.op.Key())}
	case operation.TypePut:
		fields = []string{"put", string(w.op.Key()), string(w.op.Value())}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOperation, w.op.Type())
	}

	if err := enc.EncodeArrayLen(len(fields)); err != nil {
		return EncodingError{Part: "operation header", Err: err}
	}

	for _, field := range fields {
		if err := enc.EncodeString(field); err != nil {
			return EncodingError{Part: "operation " + fields[0], Err: err}
		}
	}

	return nil
}

// wirePredicate encodes as [target, operator, value, key].
type wirePredicate struct {
	pred predicate.Predicate
}

var _ msgpack.CustomEncoder = wirePredicate{}

func (w wirePredicate) EncodeMsgpack(enc *msgpack.Encoder) error {
	var target string

	switch w.pred.Target() {
	case predicate.TargetValue:
		target = "value"
	case predicate.TargetVersion:
		target = "mod_revision"
	default:
		return ErrUnknownTarget
	}

	operator, ok := operatorSymbols[w.pred.Operation()]
	if !ok {
		return ErrUnknownOperator
	}

	if err := enc.EncodeArrayLen(4); err != nil { //nolint:mnd
		return EncodingError{Part: "predicate header", Err: err}
	}

	if err := enc.EncodeString(target); err != nil {
		return EncodingError{Part: "predicate target", Err: err}
	}

	if err := enc.EncodeString(operator); err != nil {
		return EncodingError{Part: "predicate operator", Err: err}
	}

	// Values compare as strings on the storage side.
	value := w.pred.Value()
	if raw, isBytes := value.([]byte); isBytes {
		value = string(raw)
	}

	if err := enc.Encode(value); err != nil {
		return EncodingError{Part: "predicate value", Err: err}
	}

	if err := enc.EncodeString(string(w.pred.Key())); err != nil {
		return EncodingError{Part: "predicate key", Err: err}
	}

	return nil
}

//nolint:gochecknoglobals
var operatorSymbols = map[predicate.Op]string{
	predicate.OpEqual:    "==",
	predicate.OpNotEqual: "!=",
	predicate.OpGreater:  ">",
	predicate.OpLess:     "<",
}
