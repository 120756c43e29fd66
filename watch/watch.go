// Package watch defines change notifications delivered by storage drivers.
package watch

// Event reports that the key, or some key under the prefix, changed. Drivers
// may coalesce several changes into one event and drop events when the
// consumer falls behind, so an event is a hint to re-read, not a change log.
type Event struct {
	Prefix []byte
}

// Options contains configuration options for watch operations.
type Options struct {
	// Prefix watches every key starting with the watched key, even when it
	// does not end with "/".
	Prefix bool
	// BufferSize is the capacity of the event channel.
	BufferSize int
}

// DefaultBufferSize is the event channel capacity used when none is configured.
const DefaultBufferSize = 100

// Option is a function that configures watch operation options.
type Option func(*Options)

// WithPrefix makes the watch match keys by prefix.
func WithPrefix() Option {
	return func(opts *Options) {
		opts.Prefix = true
	}
}

// WithBufferSize sets the capacity of the event channel.
func WithBufferSize(size int) Option {
	return func(opts *Options) {
		opts.BufferSize = size
	}
}

// Apply builds Options from the given callbacks.
func Apply(opts ...Option) Options {
	out := Options{Prefix: false, BufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&out)
	}

	if out.BufferSize <= 0 {
		out.BufferSize = DefaultBufferSize
	}

	return out
}
