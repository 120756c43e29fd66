// Package operation provides types and interfaces for storage operations.
// It defines operation types and configurations used in transactional contexts.
package operation

import (
	"bytes"
	"fmt"
)

// Type is the kind of an operation.
type Type int

// Operation kinds.
const (
	TypeGet Type = iota
	TypePut
	TypeDelete
)

func (t Type) String() string {
	switch t {
	case TypeGet:
		return "get"
	case TypePut:
		return "put"
	case TypeDelete:
		return "delete"
	}

	return fmt.Sprintf("type(%d)", int(t))
}

// Option configures an individual operation.
type Option struct {
	limit int
}

// WithLimit caps the number of key-value pairs returned by a prefix Get.
// Zero means no limit.
func WithLimit(limit int) Option {
	return Option{limit: limit}
}

// Operation represents a storage operation to be executed.
// This is used within transactions and other operation contexts.
type Operation struct {
	typ     Type
	key     []byte
	value   []byte
	options []Option
}

// Get creates a read operation. A key ending with "/" reads the whole prefix.
func Get(key []byte, options ...Option) Operation {
	return Operation{
		typ:     TypeGet,
		key:     key,
		value:   nil,
		options: options,
	}
}

// Put creates a write operation.
func Put(key []byte, value []byte, options ...Option) Operation {
	return Operation{
		typ:     TypePut,
		key:     key,
		value:   value,
		options: options,
	}
}

// Delete creates a delete operation. A key ending with "/" deletes the whole prefix.
func Delete(key []byte, options ...Option) Operation {
	return Operation{
		typ:     TypeDelete,
		key:     key,
		value:   nil,
		options: options,
	}
}

// Type returns the operation type.
func (o Operation) Type() Type {
	return o.typ
}

// Key returns the target key.
func (o Operation) Key() []byte {
	return o.key
}

// Value returns the data for put operations, nil for get/delete.
func (o Operation) Value() []byte {
	return o.value
}

// Options returns the options the operation was created with.
func (o Operation) Options() []Option {
	return o.options
}

// IsPrefix reports whether the operation targets every key under a prefix.
func (o Operation) IsPrefix() bool {
	return IsPrefix(o.key)
}

// Limit returns the last non-zero limit set through options, or zero.
func (o Operation) Limit() int {
	limit := 0

	for _, opt := range o.options {
		if opt.limit > 0 {
			limit = opt.limit
		}
	}

	return limit
}

// IsPrefix reports whether key denotes a prefix: it is empty or ends with "/".
func IsPrefix(key []byte) bool {
	return len(key) == 0 || bytes.HasSuffix(key, []byte("/"))
}
