package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/playhouse-bot/go-storage/lobby"
)

func printGames(out io.Writer, games ...lobby.Game) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tHOST\tSEATS\tPLAYERS\tUPDATED")

	for _, g := range games {
		seats := strconv.Itoa(len(g.Players))
		if g.MaxPlayers > 0 {
			seats += "/" + strconv.Itoa(g.MaxPlayers)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			g.ID, g.Name, g.Host, seats, strings.Join(g.Players, ","), g.UpdatedAt.Format(time.RFC3339))
	}

	_ = w.Flush()
}
