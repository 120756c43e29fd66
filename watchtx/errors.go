package watchtx

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict signals that the watched key changed between the start of an
	// attempt and its commit. The wrapper consumes it and retries; operations
	// may return it (wrapped or not) to request a retry themselves.
	ErrConflict = errors.New("watched key was modified concurrently")
	// ErrKeyNotFound is matched by every [KeyNotFoundError].
	ErrKeyNotFound = errors.New("watched key not found")
	// ErrInvalidArgument is the default error kind reported for a missing key.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMissingParameter is returned when the watched key cannot be resolved
	// from the call arguments.
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrUnexpectedArgument is returned when call arguments do not fit the
	// declared signature.
	ErrUnexpectedArgument = errors.New("unexpected argument")
	// ErrInvalidKey is returned for empty or prefix keys and for key values of
	// an unsupported type.
	ErrInvalidKey = errors.New("invalid watched key")
	// ErrTooManyAttempts is matched by [AttemptsExceededError].
	ErrTooManyAttempts = errors.New("too many conflicting attempts")
	// ErrReleased is returned when a Txn is used after its attempt ended.
	ErrReleased = errors.New("transaction is already released")
	// ErrInvalidConfig is returned by [New] for unusable options.
	ErrInvalidConfig = errors.New("invalid watcher configuration")
)

// KeyNotFoundError reports that the watched key was absent when an attempt
// started. It matches both [ErrKeyNotFound] and the configured kind.
type KeyNotFoundError struct {
	Key  string
	Kind error
}

// Error returns the error message.
func (e KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found: %s", e.Key, e.Kind)
}

// Unwrap returns the configured kind and ErrKeyNotFound.
func (e KeyNotFoundError) Unwrap() []error {
	return []error{e.Kind, ErrKeyNotFound}
}

// ParameterError reports a watched parameter that could not be resolved.
type ParameterError struct {
	Name    string
	Problem string
	Err     error
}

// Error returns the error message.
func (e ParameterError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Err, e.Name, e.Problem)
}

// Unwrap returns the parent error.
func (e ParameterError) Unwrap() error {
	return e.Err
}

func errMissingParameter(name, problem string) error {
	return ParameterError{Name: name, Problem: problem, Err: ErrMissingParameter}
}

func errUnexpectedArgument(name, problem string) error {
	return ParameterError{Name: name, Problem: problem, Err: ErrUnexpectedArgument}
}

// AttemptsExceededError is returned when every allowed attempt conflicted.
type AttemptsExceededError struct {
	Key      string
	Attempts int
}

// Error returns the error message.
func (e AttemptsExceededError) Error() string {
	return fmt.Sprintf("key %q: %d attempts conflicted", e.Key, e.Attempts)
}

// Unwrap returns ErrTooManyAttempts.
func (e AttemptsExceededError) Unwrap() error {
	return ErrTooManyAttempts
}
