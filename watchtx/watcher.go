package watchtx

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/playhouse-bot/go-storage"
	"github.com/playhouse-bot/go-storage/driver"
	"github.com/playhouse-bot/go-storage/internal/options"
	"github.com/playhouse-bot/go-storage/operation"
)

// Watcher runs watched transactions against a storage. It is safe for
// concurrent use; every call gets its own Txn.
type Watcher struct {
	storage     storage.Storage
	notFound    error
	maxAttempts int
	limiter     *rate.Limiter
	logger      *zap.Logger
	metrics     metrics
}

// New creates a Watcher over strg.
func New(strg storage.Storage, opts ...Option) (*Watcher, error) {
	if strg == nil {
		return nil, fmt.Errorf("%w: storage is nil", ErrInvalidConfig)
	}

	cfg, err := options.ApplyValidated(defaultConfig, opts, config.validate)
	if err != nil {
		return nil, err
	}

	m, err := newMetrics(cfg.meterProvider)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		storage:     strg,
		notFound:    cfg.notFound,
		maxAttempts: cfg.maxAttempts,
		limiter:     cfg.limiter,
		logger:      cfg.logger,
		metrics:     m,
	}, nil
}

// NotFoundError returns the error kind reported for an absent watched key.
func (w *Watcher) NotFoundError() error {
	return w.notFound
}

// Do runs fn against a transaction watching key until an attempt commits
// without conflict, fn fails with an error other than ErrConflict, or ctx is
// done. Writes fn leaves pending are committed after it returns nil. A driver
// giving up with [driver.ErrContention] counts as a conflict.
func (w *Watcher) Do(ctx context.Context, key []byte, fn func(ctx context.Context, txn *Txn) error) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	if operation.IsPrefix(key) {
		return fmt.Errorf("%w: %q is a prefix", ErrInvalidKey, key)
	}

	for attempt := 1; ; attempt++ {
		if err := w.pace(ctx, attempt); err != nil {
			return err
		}

		w.metrics.attempts.Add(ctx, 1)

		err := w.attempt(ctx, key, attempt, fn)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrKeyNotFound):
			w.metrics.notFound.Add(ctx, 1)
			return err
		case !conflicted(err):
			return err
		}

		w.metrics.conflicts.Add(ctx, 1)
		w.logger.Debug("watched key changed, retrying",
			zap.ByteString("key", key),
			zap.Int("attempt", attempt),
		)

		if w.maxAttempts > 0 && attempt >= w.maxAttempts {
			return AttemptsExceededError{Key: string(key), Attempts: attempt}
		}
	}
}

// conflicted reports whether an attempt lost a race and may be retried.
func conflicted(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, driver.ErrContention)
}

func (w *Watcher) pace(ctx context.Context, attempt int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("watched transaction aborted: %w", err)
	}

	if attempt == 1 || w.limiter == nil {
		return nil
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("retry pacing failed: %w", err)
	}

	return nil
}

func (w *Watcher) attempt(
	ctx context.Context,
	key []byte,
	attempt int,
	fn func(ctx context.Context, txn *Txn) error,
) error {
	txn, err := begin(ctx, w.storage, key, attempt)
	if err != nil {
		return err
	}
	defer txn.release()

	if !txn.exists {
		return KeyNotFoundError{Key: string(key), Kind: w.notFound}
	}

	if err := fn(ctx, txn); err != nil {
		return err
	}

	return txn.finish()
}
