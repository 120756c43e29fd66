package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type CreateCmd struct {
	flags *Flags

	maxPlayers int
}

// NewCreateCmd creates a new create command
func NewCreateCmd(flags *Flags) *CreateCmd {
	return &CreateCmd{flags: flags}
}

// Register adds the create command to the application
func (cmd *CreateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "create",
		Usage:     "Create a game",
		UsageText: "gamestore create [--max-players N] NAME HOST",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "max-players",
				Aliases:     []string{"m"},
				Usage:       "seat limit, 0 for unlimited",
				Destination: &cmd.maxPlayers,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *CreateCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("create needs NAME and HOST, got %d arguments", c.Args().Len())
	}

	game, err := cmd.flags.Registry.Create(ctx, c.Args().Get(0), c.Args().Get(1), cmd.maxPlayers)
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}

	_, _ = fmt.Fprintln(c.Root().Writer, game.ID)

	return nil
}
