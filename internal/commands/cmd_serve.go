package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/playhouse-bot/go-storage/maintenance"
)

type ServeCmd struct {
	flags *Flags
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "serve",
		Usage:       "Run periodic maintenance and the metrics endpoint",
		UsageText:   "gamestore serve",
		Description: "Sweeps idle games on the configured interval and serves /metrics until interrupted.",
		Action:      cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config
	log := cmd.flags.Logger

	scheduler, err := maintenance.New(
		maintenance.WithLogger(log.Named("maintenance")),
		maintenance.WithMeterProvider(cmd.flags.Telemetry.MeterProvider()),
	)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	err = scheduler.Every("sweep-idle-games", cfg.Maintenance.SweepInterval, func(ctx context.Context) error {
		_, err := cmd.flags.Registry.Sweep(ctx, cfg.Maintenance.MaxIdle)
		return err
	})
	if err != nil {
		return fmt.Errorf("register sweep: %w", err)
	}

	log.Info("serving",
		zap.String("backend", cfg.Storage.Backend),
		zap.Duration("sweep_interval", cfg.Maintenance.SweepInterval),
		zap.Duration("max_idle", cfg.Maintenance.MaxIdle),
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return scheduler.Run(ctx) })
	group.Go(func() error { return cmd.flags.Telemetry.Serve(ctx) })

	if err := group.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}
