// Package marshaller converts records to and from the bytes kept in storage.
package marshaller

// TypedMarshaller encodes and decodes values of one type.
type TypedMarshaller[T any] interface {
	Marshal(data T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}
