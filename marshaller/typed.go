package marshaller

import (
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

var (
	_ TypedMarshaller[struct{}] = TypedYamlMarshaller[struct{}]{}
	_ TypedMarshaller[struct{}] = TypedMsgpackMarshaller[struct{}]{}
)

// TypedYamlMarshaller is a generic YAML marshaller for typed objects.
type TypedYamlMarshaller[T any] struct{}

// NewTypedYamlMarshaller creates a new TypedYamlMarshaller for the specified type.
func NewTypedYamlMarshaller[T any]() TypedYamlMarshaller[T] {
	return TypedYamlMarshaller[T]{}
}

// Marshal serializes the typed data to YAML format.
func (m TypedYamlMarshaller[T]) Marshal(data T) ([]byte, error) {
	marshalled, err := yaml.Marshal(data)
	if err != nil {
		return nil, MarshalError{Codec: "yaml", Err: err}
	}

	return marshalled, nil
}

// Unmarshal deserializes YAML data into a typed object.
func (m TypedYamlMarshaller[T]) Unmarshal(data []byte) (T, error) {
	var out T

	if err := yaml.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, UnmarshalError{Codec: "yaml", Err: err}
	}

	return out, nil
}

// TypedMsgpackMarshaller is a compact MessagePack marshaller for typed objects.
type TypedMsgpackMarshaller[T any] struct{}

// NewTypedMsgpackMarshaller creates a new TypedMsgpackMarshaller for the specified type.
func NewTypedMsgpackMarshaller[T any]() TypedMsgpackMarshaller[T] {
	return TypedMsgpackMarshaller[T]{}
}

// Marshal serializes the typed data to MessagePack.
func (m TypedMsgpackMarshaller[T]) Marshal(data T) ([]byte, error) {
	marshalled, err := msgpack.Marshal(data)
	if err != nil {
		return nil, MarshalError{Codec: "msgpack", Err: err}
	}

	return marshalled, nil
}

// Unmarshal deserializes MessagePack data into a typed object.
func (m TypedMsgpackMarshaller[T]) Unmarshal(data []byte) (T, error) {
	var out T

	if err := msgpack.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, UnmarshalError{Codec: "msgpack", Err: err}
	}

	return out, nil
}

// ByName returns the marshaller registered under name: "yaml" or "msgpack".
func ByName[T any](name string) (TypedMarshaller[T], bool) {
	switch name {
	case "yaml":
		return NewTypedYamlMarshaller[T](), true
	case "msgpack":
		return NewTypedMsgpackMarshaller[T](), true
	default:
		return nil, false
	}
}
