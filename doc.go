// Package storage provides a uniform transactional key-value storage layer for
// the playhouse game bot, with interchangeable in-memory, etcd, Redis and
// Tarantool drivers.
//
// See the [github.com/playhouse-bot/go-storage/watchtx] package for the
// optimistic watch-and-retry wrapper built on top of it.
package storage

import "errors"

// ErrInvalidPrefix is returned by Range when the prefix does not end with "/".
var ErrInvalidPrefix = errors.New("prefix must be empty or end with \"/\"")
