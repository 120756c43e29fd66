package lobby

import (
	"time"

	"go.uber.org/zap"

	"github.com/playhouse-bot/go-storage/internal/options"
	"github.com/playhouse-bot/go-storage/marshaller"
	"github.com/playhouse-bot/go-storage/watchtx"
)

// DefaultPrefix is the key prefix game records are stored under.
const DefaultPrefix = "/games/"

type config struct {
	prefix    string
	codec     marshaller.TypedMarshaller[Game]
	now       func() time.Time
	logger    *zap.Logger
	watchOpts []watchtx.Option
}

// Option configures a Registry.
type Option = options.OptionCallback[config]

func defaultConfig() config {
	return config{
		prefix:    DefaultPrefix,
		codec:     marshaller.NewTypedYamlMarshaller[Game](),
		now:       time.Now,
		logger:    zap.NewNop(),
		watchOpts: nil,
	}
}

// WithPrefix sets the key prefix. It must end with "/".
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithMarshaller sets the record encoding.
func WithMarshaller(codec marshaller.TypedMarshaller[Game]) Option {
	return func(c *config) {
		c.codec = codec
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithWatcherOptions passes options to the watched-transaction wrapper used
// for mutations. The not-found error kind is always ErrGameNotFound.
func WithWatcherOptions(opts ...watchtx.Option) Option {
	return func(c *config) {
		c.watchOpts = append(c.watchOpts, opts...)
	}
}
