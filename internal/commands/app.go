// Package commands implements the gamestore command line.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/playhouse-bot/go-storage/internal/config"
	"github.com/playhouse-bot/go-storage/internal/logger"
	"github.com/playhouse-bot/go-storage/internal/telemetry"
	"github.com/playhouse-bot/go-storage/lobby"
	"github.com/playhouse-bot/go-storage/marshaller"
	"github.com/playhouse-bot/go-storage/watchtx"
)

// NewApp builds the root command with every subcommand registered.
func NewApp(flags *Flags, version string) *cli.Command {
	app := &cli.Command{
		Name:      "gamestore",
		Usage:     "Manage game lobbies in a transactional key-value store",
		UsageText: "gamestore [global options] command [command options]",
		Version:   version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("GAMESTORE_CONFIG"),
				Value:       DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level override (debug, info, warn, error)",
				Sources:     cli.EnvVars("GAMESTORE_LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "backend",
				Usage:       "storage backend override (memory, etcd, redis, tarantool)",
				Sources:     cli.EnvVars("GAMESTORE_BACKEND"),
				Destination: &flags.Backend,
			},
		},
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			return ctx, flags.setup(ctx)
		},
		After: func(context.Context, *cli.Command) error {
			return flags.close()
		},
	}

	app = NewCreateCmd(flags).Register(app)
	app = NewShowCmd(flags).Register(app)
	app = NewLsCmd(flags).Register(app)
	app = NewSeatCmd(flags).Register(app)
	app = NewRmCmd(flags).Register(app)
	app = NewWatchCmd(flags).Register(app)
	app = NewSweepCmd(flags).Register(app)
	app = NewServeCmd(flags).Register(app)

	return app
}

// setup loads the config and builds the services. Services already present
// on flags are kept.
func (f *Flags) setup(ctx context.Context) error {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if f.LogLevel != "" {
		cfg.Logger.Level = f.LogLevel
	}

	if f.Backend != "" {
		cfg.Storage.Backend = f.Backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	f.Config = cfg

	if f.Logger == nil {
		if f.Logger, err = logger.New(cfg.Logger); err != nil {
			return fmt.Errorf("create logger: %w", err)
		}

		f.closers = append(f.closers, func() error {
			_ = f.Logger.Sync()
			return nil
		})
	}

	if f.Telemetry == nil {
		if f.Telemetry, err = telemetry.New(cfg.Metrics, f.Logger.Named("telemetry")); err != nil {
			return fmt.Errorf("create telemetry: %w", err)
		}

		f.closers = append(f.closers, func() error { return f.Telemetry.Shutdown(context.WithoutCancel(ctx)) })
	}

	if f.Storage == nil {
		strg, closeStorage, err := openStorage(ctx, cfg.Storage, f.Logger)
		if err != nil {
			return err
		}

		f.Storage = strg
		f.closers = append(f.closers, closeStorage)
	}

	if f.Registry == nil {
		if f.Registry, err = newRegistry(f); err != nil {
			return err
		}
	}

	return nil
}

func newRegistry(f *Flags) (*lobby.Registry, error) {
	codec, ok := marshaller.ByName[lobby.Game](f.Config.Lobby.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", config.ErrInvalid, f.Config.Lobby.Codec)
	}

	watchOpts := []watchtx.Option{
		watchtx.WithMaxAttempts(f.Config.Lobby.MaxAttempts),
		watchtx.WithMeterProvider(f.Telemetry.MeterProvider()),
	}

	if f.Config.Lobby.RetryRate > 0 {
		limiter := rate.NewLimiter(rate.Limit(f.Config.Lobby.RetryRate), 1)
		watchOpts = append(watchOpts, watchtx.WithRetryLimiter(limiter))
	}

	registry, err := lobby.New(f.Storage,
		lobby.WithPrefix(f.Config.Lobby.Prefix),
		lobby.WithMarshaller(codec),
		lobby.WithLogger(f.Logger.Named("lobby")),
		lobby.WithWatcherOptions(watchOpts...),
	)
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}

	return registry, nil
}

// close releases everything setup opened, last opened first.
func (f *Flags) close() error {
	var errs []error

	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	f.closers = nil

	return errors.Join(errs...)
}
