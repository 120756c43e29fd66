package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
)

type RmCmd struct {
	flags *Flags
}

// NewRmCmd creates a new rm command
func NewRmCmd(flags *Flags) *RmCmd {
	return &RmCmd{flags: flags}
}

// Register adds the rm and touch commands to the application
func (cmd *RmCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "rm",
			Usage:     "Delete games",
			UsageText: "gamestore rm GAME_ID...",
			Action:    cmd.remove,
		},
		&cli.Command{
			Name:      "touch",
			Usage:     "Mark a game as active now",
			UsageText: "gamestore touch GAME_ID",
			Action:    cmd.touch,
		},
	)

	return app
}

func (cmd *RmCmd) remove(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() == 0 {
		return errors.New("rm needs at least one GAME_ID")
	}

	for _, id := range c.Args().Slice() {
		game, err := cmd.flags.Registry.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete game %s: %w", id, err)
		}

		_, _ = fmt.Fprintf(c.Root().Writer, "deleted %s (%s)\n", game.ID, game.Name)
	}

	return nil
}

func (cmd *RmCmd) touch(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("touch needs GAME_ID, got %d arguments", c.Args().Len())
	}

	game, err := cmd.flags.Registry.Touch(ctx, c.Args().First())
	if err != nil {
		return fmt.Errorf("touch game: %w", err)
	}

	printGames(c.Root().Writer, game)

	return nil
}
