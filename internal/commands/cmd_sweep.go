package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

type SweepCmd struct {
	flags *Flags

	maxIdle time.Duration
}

// NewSweepCmd creates a new sweep command
func NewSweepCmd(flags *Flags) *SweepCmd {
	return &SweepCmd{flags: flags}
}

// Register adds the sweep command to the application
func (cmd *SweepCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "sweep",
		Usage:     "Delete idle games once",
		UsageText: "gamestore sweep [--max-idle DURATION]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:        "max-idle",
				Usage:       "idle time after which a game is deleted (default from config)",
				Destination: &cmd.maxIdle,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SweepCmd) run(ctx context.Context, c *cli.Command) error {
	maxIdle := cmd.maxIdle
	if maxIdle <= 0 {
		maxIdle = cmd.flags.Config.Maintenance.MaxIdle
	}

	removed, err := cmd.flags.Registry.Sweep(ctx, maxIdle)
	if err != nil {
		return fmt.Errorf("sweep games: %w", err)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "removed %d idle game(s)\n", removed)

	return nil
}
