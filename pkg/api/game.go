package api

import (
	"context"
	"errors"

	"codenames/pkg/agent"
	"codenames/pkg/game"
)

// ErrGameNotFound is returned for an unknown game id.
var ErrGameNotFound = errors.New("game not found")

// UpdateTypeState tags live state pushes.
const UpdateTypeState = "STATE_UPDATE"

// StateUpdate is pushed to subscribers after every accepted change.
type StateUpdate struct {
	Type         string      `json:"type"`
	GameID       string      `json:"game_id"`
	State        *game.State `json:"state"`
	AgentTurnDue bool        `json:"agent_turn_due"`
	// Lines holds the log lines added by this change.
	Lines []string `json:"-"`
}

// Status separates applied requests from requests dropped as stale.
type Status string

const (
	StatusSuccess Status = "success"
	StatusIgnored Status = "ignored"
)

// Outcome is the result of a move request that was not rejected.
type Outcome struct {
	Status       Status
	Reason       string
	State        *game.State
	AgentTurnDue bool
	// Move is set for agent moves.
	Move *agent.Decision
	// Updates counts the actions applied.
	Updates int
}

// CreateOptions configures a new game. Zero values take defaults.
type CreateOptions struct {
	BoardSize    int
	Difficulty   string
	LLMModel     string
	Players      map[game.Seat]game.Controller
	StartingTeam game.Team
	// AutoPlay overrides the system auto_play_agents setting for this game.
	AutoPlay *bool
}

// GameInfo is a live game summary.
type GameInfo struct {
	GameID    string     `json:"game_id"`
	Phase     game.Phase `json:"phase"`
	TurnCount int        `json:"turn_count"`
	Winner    game.Team  `json:"winner,omitempty"`
	Score     game.Score `json:"score"`
}

// GameService is the game core as seen by channels.
type GameService interface {
	CreateGame(ctx context.Context, opts CreateOptions) (*game.State, error)
	State(id string) (*game.State, error)
	// Submit applies a move for seat, or for the seat to move when seat is
	// empty. A non-nil expectedTurn that differs from turn_count makes the
	// request stale.
	Submit(ctx context.Context, id string, seat game.Seat, action game.Action, expectedTurn *int) (*Outcome, error)
	// TriggerAgent runs the agent for the seat to move.
	TriggerAgent(ctx context.Context, id string, expectedTurn *int) (*Outcome, error)
	SetSeat(ctx context.Context, id string, seat game.Seat, controller game.Controller) (*game.State, error)
	List() []GameInfo
	// Observe calls fn with a snapshot of the game while no move can be
	// accepted, so nothing published later is older than that snapshot.
	Observe(id string, fn func(state *game.State)) error
}
