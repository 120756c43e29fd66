// Package kv provides key-value data structures and interfaces for storage operations.
// It defines the core KeyValue type used throughout the storage system.
package kv

import "bytes"

// KeyValue represents a key-value pair with revision metadata.
// This structure is used to store and retrieve data from the key-value storage.
type KeyValue struct {
	// Key is the serialized representation of the key.
	Key []byte
	// Value is the serialized representation of the value.
	Value []byte
	// ModRevision is the revision number of the last modification to this key.
	// Stored keys always have a revision greater than zero.
	ModRevision int64
}

// Find returns the pair stored under key.
func Find(kvs []KeyValue, key []byte) (KeyValue, bool) {
	for _, pair := range kvs {
		if bytes.Equal(pair.Key, key) {
			return pair, true
		}
	}

	return KeyValue{}, false
}
