package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type ShowCmd struct {
	flags *Flags
}

// NewShowCmd creates a new show command
func NewShowCmd(flags *Flags) *ShowCmd {
	return &ShowCmd{flags: flags}
}

// Register adds the show command to the application
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show a game",
		UsageText: "gamestore show GAME_ID",
		Action:    cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("show needs GAME_ID, got %d arguments", c.Args().Len())
	}

	game, err := cmd.flags.Registry.Get(ctx, c.Args().First())
	if err != nil {
		return fmt.Errorf("show game: %w", err)
	}

	printGames(c.Root().Writer, game)

	return nil
}
