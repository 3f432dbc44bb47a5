package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"codenames/pkg/api"
	"codenames/pkg/game"
	"codenames/pkg/gateway"
	"codenames/pkg/monitor"

	"github.com/spf13/cobra"
)

var playFlags struct {
	size     int
	model    string
	starting string
	maxTurns int
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play one headless game with agents in every seat",
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().IntVar(&playFlags.size, "size", 25, "board size (25, 36, 49 or 64)")
	playCmd.Flags().StringVar(&playFlags.model, "model", "", "model for every agent (default: default_model)")
	playCmd.Flags().StringVar(&playFlags.starting, "starting", "RED", "starting team")
	playCmd.Flags().IntVar(&playFlags.maxTurns, "max-turns", 200, "give up after this many agent turns")
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	starting, err := game.ParseTeam(playFlags.starting)
	if err != nil {
		return err
	}

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// No channels: the monitor prints the game as it goes.
	gw, err := gateway.NewGatewayBuilder().
		WithMonitor(monitor.NewCLIMonitor()).
		WithGames(a.games).
		WithHistory(a.store).
		Build()
	if err != nil {
		return err
	}
	defer gw.StopAll()

	players := make(map[game.Seat]game.Controller, len(game.AllSeats))
	for _, seat := range game.AllSeats {
		players[seat] = game.ControllerAgent
	}
	autoPlay := false
	state, err := a.games.CreateGame(ctx, api.CreateOptions{
		BoardSize:    playFlags.size,
		LLMModel:     playFlags.model,
		Players:      players,
		StartingTeam: starting,
		AutoPlay:     &autoPlay,
	})
	if err != nil {
		return err
	}

	final, err := a.games.RunToCompletion(ctx, state.GameID, playFlags.maxTurns)
	if final != nil {
		printBoard(cmd.OutOrStdout(), final.Board)
		fmt.Fprintf(cmd.OutOrStdout(), "\nGame %s: winner %s, RED %d - BLUE %d\n", final.GameID, orDash(string(final.Winner)), final.Score.Red, final.Score.Blue)
	}
	return err
}

// printBoard lays tiles out as a square grid. Revealed tiles are marked
// with '*'.
func printBoard(w io.Writer, board []game.Tile) {
	if len(board) == 0 {
		return
	}
	cols := int(math.Sqrt(float64(len(board))))
	width := 0
	for _, t := range board {
		width = max(width, len(t.Word)+len(t.Team)+4)
	}
	for i, t := range board {
		mark := " "
		if t.Revealed {
			mark = "*"
		}
		cell := fmt.Sprintf("%s%s(%s)", mark, t.Word, t.Team)
		fmt.Fprint(w, cell+strings.Repeat(" ", width-len(cell)))
		if (i+1)%cols == 0 {
			fmt.Fprintln(w)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
