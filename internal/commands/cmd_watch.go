package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type WatchCmd struct {
	flags *Flags
}

// NewWatchCmd creates a new watch command
func NewWatchCmd(flags *Flags) *WatchCmd {
	return &WatchCmd{flags: flags}
}

// Register adds the watch command to the application
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "watch",
		Usage:       "Print changed game keys",
		UsageText:   "gamestore watch",
		Description: "Streams the key of every changed game until interrupted.",
		Action:      cmd.run,
	})

	return app
}

func (cmd *WatchCmd) run(ctx context.Context, c *cli.Command) error {
	events, err := cmd.flags.Registry.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch games: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}

			_, _ = fmt.Fprintln(c.Root().Writer, string(event.Prefix))
		}
	}
}
