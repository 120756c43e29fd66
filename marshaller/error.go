package marshaller

import "fmt"

// MarshalError is returned when a value cannot be encoded.
type MarshalError struct {
	Codec string
	Err   error
}

func (e MarshalError) Error() string {
	return fmt.Sprintf("%s: failed to marshal: %s", e.Codec, e.Err)
}

func (e MarshalError) Unwrap() error {
	return e.Err
}

// UnmarshalError is returned when stored bytes cannot be decoded, usually
// because they were written with another codec.
type UnmarshalError struct {
	Codec string
	Err   error
}

func (e UnmarshalError) Error() string {
	return fmt.Sprintf("%s: failed to unmarshal: %s", e.Codec, e.Err)
}

func (e UnmarshalError) Unwrap() error {
	return e.Err
}
