package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type LsCmd struct {
	flags *Flags
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags) *LsCmd {
	return &LsCmd{flags: flags}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "ls",
		Usage:       "List all games",
		UsageText:   "gamestore ls",
		Description: "Displays a table of all games with their host, seats and players.",
		Action:      cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	games, err := cmd.flags.Registry.List(ctx)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}

	if len(games) == 0 {
		_, _ = fmt.Fprintln(c.Root().Writer, "No games found")
		return nil
	}

	printGames(c.Root().Writer, games...)

	return nil
}
