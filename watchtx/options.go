package watchtx

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/playhouse-bot/go-storage/internal/options"
)

type config struct {
	notFound      error
	maxAttempts   int
	limiter       *rate.Limiter
	logger        *zap.Logger
	meterProvider metric.MeterProvider
}

// Option configures a Watcher.
type Option = options.OptionCallback[config]

func defaultConfig() config {
	return config{
		notFound:      ErrInvalidArgument,
		maxAttempts:   0,
		limiter:       nil,
		logger:        zap.NewNop(),
		meterProvider: noop.NewMeterProvider(),
	}
}

func (c config) validate() error {
	switch {
	case c.notFound == nil:
		return fmt.Errorf("%w: not found error kind is nil", ErrInvalidConfig)
	case c.maxAttempts < 0:
		return fmt.Errorf("%w: max attempts %d is negative", ErrInvalidConfig, c.maxAttempts)
	case c.logger == nil:
		return fmt.Errorf("%w: logger is nil", ErrInvalidConfig)
	case c.meterProvider == nil:
		return fmt.Errorf("%w: meter provider is nil", ErrInvalidConfig)
	}

	return nil
}

// WithNotFoundError sets the error kind reported when the watched key is
// absent. The returned KeyNotFoundError matches kind via errors.Is.
func WithNotFoundError(kind error) Option {
	return func(c *config) {
		c.notFound = kind
	}
}

// WithMaxAttempts caps the number of attempts per call. Zero means unbounded.
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		c.maxAttempts = n
	}
}

// WithRetryLimiter paces retries. The first attempt of a call is never delayed.
func WithRetryLimiter(limiter *rate.Limiter) Option {
	return func(c *config) {
		c.limiter = limiter
	}
}

// WithLogger sets the logger. Conflicts are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMeterProvider sets the provider the attempt counters are created from.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = provider
	}
}
