package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"codenames/pkg/api"
	"codenames/pkg/game"
)

// RunToCompletion drives agent turns synchronously until the game is over.
// Every seat to move must be agent controlled. maxTurns bounds the number of
// agent turns; zero means no bound.
func (s *Service) RunToCompletion(ctx context.Context, id string, maxTurns int) (*game.State, error) {
	for turns := 0; ; turns++ {
		state, err := s.State(id)
		if err != nil {
			return nil, err
		}
		if state.IsOver() {
			slog.InfoContext(ctx, "Game finished", "game", id, "winner", state.Winner, "turns", turns, "score_red", state.Score.Red, "score_blue", state.Score.Blue)
			return state, nil
		}
		if maxTurns > 0 && turns >= maxTurns {
			return state, fmt.Errorf("game %s not finished after %d agent turns", id, maxTurns)
		}
		if !state.AgentDue() {
			seat, _ := state.Phase.Seat()
			return state, fmt.Errorf("seat %s is not agent controlled", seat)
		}

		expected := state.TurnCount
		out, err := s.TriggerAgent(ctx, id, &expected)
		if err != nil {
			return state, err
		}
		if out.Status == api.StatusIgnored {
			slog.WarnContext(ctx, "Agent turn ignored", "game", id, "reason", out.Reason)
		}
	}
}
