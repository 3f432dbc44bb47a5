package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"codenames/pkg/history"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded games",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		games, err := store.List(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "GAME\tWINNER\tSCORE\tTURNS\tUPDATED")
		for _, g := range games {
			if g.Error != "" {
				fmt.Fprintf(tw, "%s\t(%s)\t\t\t\n", g.GameID, g.Error)
				continue
			}
			score := "-"
			if g.FinalScore != nil {
				score = fmt.Sprintf("%d-%d", g.FinalScore.Red, g.FinalScore.Blue)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", g.GameID, orDash(string(g.Winner)), score, g.TurnCount, g.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var replayStep int

var replayCmd = &cobra.Command{
	Use:   "replay <game-id>",
	Short: "Replay a recorded game line by line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		record, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if cmd.Flags().Changed("step") {
			if replayStep < 0 || replayStep > len(record.Log) {
				return fmt.Errorf("step must be between 0 and %d", len(record.Log))
			}
			printBoard(out, history.Reconstruct(record.Cards, record.Log, replayStep))
			return nil
		}

		for _, step := range history.Replay(record) {
			fmt.Fprintf(out, "%3d  %s\n", step.Index, step.Line)
			if step.Reasoning != nil && step.Reasoning.Reasoning != "" {
				fmt.Fprintf(out, "     [%s] %s\n", step.Reasoning.Role, step.Reasoning.Reasoning)
			}
		}
		fmt.Fprintln(out)
		printBoard(out, history.Reconstruct(record.Cards, record.Log, len(record.Log)))
		return nil
	},
}

func init() {
	replayCmd.Flags().IntVar(&replayStep, "step", 0, "only print the board after this many log lines")
}

func historyStore(ctx context.Context) (history.Store, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(ctx, cfg)
}
