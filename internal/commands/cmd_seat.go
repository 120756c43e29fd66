package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/playhouse-bot/go-storage/lobby"
)

// SeatCmd registers join and leave, which share argument handling.
type SeatCmd struct {
	flags *Flags
}

// NewSeatCmd creates the join and leave commands
func NewSeatCmd(flags *Flags) *SeatCmd {
	return &SeatCmd{flags: flags}
}

// Register adds the join and leave commands to the application
func (cmd *SeatCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "join",
			Usage:     "Seat a player in a game",
			UsageText: "gamestore join GAME_ID PLAYER",
			Action:    cmd.action("join", (*lobby.Registry).Join),
		},
		&cli.Command{
			Name:        "leave",
			Usage:       "Remove a player from a game",
			UsageText:   "gamestore leave GAME_ID PLAYER",
			Description: "The next player becomes host when the host leaves. The game is deleted when its last player leaves.",
			Action:      cmd.action("leave", (*lobby.Registry).Leave),
		},
	)

	return app
}

// seatFunc is a Registry method expression; the registry only exists once
// the Before hook has run.
type seatFunc func(r *lobby.Registry, ctx context.Context, id, player string) (lobby.Game, error) //nolint:revive

func (cmd *SeatCmd) action(name string, seat seatFunc) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("%s needs GAME_ID and PLAYER, got %d arguments", name, c.Args().Len())
		}

		game, err := seat(cmd.flags.Registry, ctx, c.Args().Get(0), c.Args().Get(1))
		if err != nil {
			return fmt.Errorf("%s game: %w", name, err)
		}

		printGames(c.Root().Writer, game)

		return nil
	}
}
