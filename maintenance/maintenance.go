// Package maintenance runs named housekeeping tasks on fixed intervals.
//
// A task failure or panic is logged and counted; it never stops later runs
// of the same task or other tasks.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/playhouse-bot/go-storage/internal/options"
)

// DefaultInterval is used for tasks registered with a non-positive interval.
const DefaultInterval = 15 * time.Minute

var (
	// ErrRunning is returned when tasks are registered while the scheduler runs.
	ErrRunning = errors.New("scheduler is already running")
	// ErrUnknownTask is returned by RunOnce for an unregistered task name.
	ErrUnknownTask = errors.New("unknown task")
	// ErrDuplicateTask is returned when a task name is registered twice.
	ErrDuplicateTask = errors.New("task already registered")
)

// Task is one maintenance pass. It must be safe to run repeatedly.
type Task func(ctx context.Context) error

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Task  string
	Value any
}

// Error returns the error message.
func (e PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Task, e.Value)
}

type job struct {
	name     string
	interval time.Duration
	task     Task
}

type config struct {
	logger        *zap.Logger
	meterProvider metric.MeterProvider
	runOnStart    bool
}

// Option configures a Scheduler.
type Option = options.OptionCallback[config]

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMeterProvider sets the provider for run and failure counters.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *config) {
		if provider != nil {
			c.meterProvider = provider
		}
	}
}

// WithRunOnStart controls whether every task runs once as soon as Run starts.
// It does by default.
func WithRunOnStart(enabled bool) Option {
	return func(c *config) {
		c.runOnStart = enabled
	}
}

// Scheduler runs registered tasks until its context is done.
type Scheduler struct {
	logger     *zap.Logger
	runOnStart bool
	runs       metric.Int64Counter
	failures   metric.Int64Counter

	mu      sync.Mutex
	jobs    []job
	running bool
}

// New creates an empty Scheduler.
func New(opts ...Option) (*Scheduler, error) {
	cfg := options.ApplyOptions(func() config {
		return config{logger: zap.NewNop(), meterProvider: noop.NewMeterProvider(), runOnStart: true}
	}, opts)

	meter := cfg.meterProvider.Meter("github.com/playhouse-bot/go-storage/maintenance")

	runs, err := meter.Int64Counter("maintenance.runs",
		metric.WithDescription("Maintenance task runs."))
	if err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}

	failures, err := meter.Int64Counter("maintenance.failures",
		metric.WithDescription("Maintenance task runs that failed or panicked."))
	if err != nil {
		return nil, fmt.Errorf("failed to create failures counter: %w", err)
	}

	return &Scheduler{
		logger:     cfg.logger,
		runOnStart: cfg.runOnStart,
		runs:       runs,
		failures:   failures,
		mu:         sync.Mutex{},
		jobs:       nil,
		running:    false,
	}, nil
}

// Every registers task under name to run every interval. A non-positive
// interval means DefaultInterval.
func (s *Scheduler) Every(name string, interval time.Duration, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrRunning
	}

	for _, j := range s.jobs {
		if j.name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
		}
	}

	if interval <= 0 {
		interval = DefaultInterval
	}

	s.jobs = append(s.jobs, job{name: name, interval: interval, task: task})

	return nil
}

// Run starts every task and blocks until ctx is done. It returns nil on
// cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}

	s.running = true
	jobs := append([]job(nil), s.jobs...)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	group, groupCtx := errgroup.WithContext(ctx)

	for _, j := range jobs {
		group.Go(func() error {
			s.loop(groupCtx, j)
			return nil
		})
	}

	if len(jobs) == 0 {
		group.Go(func() error {
			<-groupCtx.Done()
			return nil
		})
	}

	s.logger.Info("maintenance scheduler started", zap.Int("tasks", len(jobs)))

	err := group.Wait()

	s.logger.Info("maintenance scheduler stopped")

	return err
}

// RunOnce runs the named task immediately and returns its error.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()

	var found *job

	for i := range s.jobs {
		if s.jobs[i].name == name {
			found = &s.jobs[i]
			break
		}
	}

	s.mu.Unlock()

	if found == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	return s.execute(ctx, *found)
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	if s.runOnStart {
		_ = s.execute(ctx, j)
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.execute(ctx, j)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, j job) (err error) {
	attrs := metric.WithAttributes(attribute.String("task", j.name))
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Task: j.name, Value: r}
		}

		s.runs.Add(ctx, 1, attrs)

		if err != nil {
			s.failures.Add(ctx, 1, attrs)
			s.logger.Error("maintenance task failed", zap.String("task", j.name), zap.Error(err))

			return
		}

		s.logger.Debug("maintenance task done",
			zap.String("task", j.name),
			zap.Duration("took", time.Since(started)),
		)
	}()

	return j.task(ctx)
}
