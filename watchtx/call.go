package watchtx

import (
	"context"
	"fmt"
	"reflect"
)

// KeyFunc resolves the watched key from the arguments of a call.
type KeyFunc[A any] func(args A) ([]byte, error)

// Operation is the body of a watched call. It reads and buffers writes
// through txn; the writes it leaves pending are committed when it returns nil.
type Operation[A, R any] func(ctx context.Context, txn *Txn, args A) (R, error)

// Call resolves the watched key from args and runs op until it commits
// without conflict. The result of the last attempt is returned.
func Call[A, R any](ctx context.Context, w *Watcher, keyFn KeyFunc[A], op Operation[A, R], args A) (R, error) {
	var zero R

	if keyFn == nil {
		return zero, errMissingParameter("key", "no key function")
	}

	key, err := keyFn(args)
	if err != nil {
		return zero, err
	}

	var result R

	err = w.Do(ctx, key, func(ctx context.Context, txn *Txn) error {
		r, err := op(ctx, txn, args)
		if err != nil {
			return err
		}

		result = r

		return nil
	})
	if err != nil {
		return zero, err
	}

	return result, nil
}

// Wrap turns op into a plain function with the watch-and-retry behavior of Call.
func Wrap[A, R any](w *Watcher, keyFn KeyFunc[A], op Operation[A, R]) func(ctx context.Context, args A) (R, error) {
	return func(ctx context.Context, args A) (R, error) {
		return Call(ctx, w, keyFn, op, args)
	}
}

// Prefixed prepends prefix to the key resolved by keyFn.
func Prefixed[A any](prefix string, keyFn KeyFunc[A]) KeyFunc[A] {
	return func(args A) ([]byte, error) {
		key, err := keyFn(args)
		if err != nil {
			return nil, err
		}

		return append([]byte(prefix), key...), nil
	}
}

// KeyBytes converts a parameter value into a key. Strings, byte slices and
// fmt.Stringer values are accepted.
func KeyBytes(name string, value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, errMissingParameter(name, "value is nil")
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, errMissingParameter(name, "value is nil")
		}

		return []byte(v.String()), nil
	default:
		return nil, ParameterError{Name: name, Problem: fmt.Sprintf("unsupported key type %T", v), Err: ErrInvalidKey}
	}
}
