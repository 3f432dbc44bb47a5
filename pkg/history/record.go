package history

import (
	"context"
	"errors"
	"time"

	"codenames/pkg/game"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RecordVersion is bumped whenever the stored layout or the log line formats
// change in a way replay has to know about.
const RecordVersion = 1

// ErrNotFound is returned by Store.Load for an unknown game id.
var ErrNotFound = errors.New("history record not found")

// Record is the persisted form of one game. Cards hold the initial board with
// every tile face down; which tiles are revealed at any point is derived by
// replaying Log.
type Record struct {
	Version      int                           `json:"version"`
	GameID       string                        `json:"game_id"`
	Cards        []game.Tile                   `json:"cards"`
	Winner       game.Team                     `json:"winner,omitempty"`
	Log          []string                      `json:"log"`
	ReasoningLog []game.ReasoningEntry         `json:"reasoning_log"`
	FinalScore   game.Score                    `json:"final_score"`
	Phase        game.Phase                    `json:"phase"`
	TurnCount    int                           `json:"turn_count"`
	Players      map[game.Seat]game.Controller `json:"players,omitempty"`
	BoardSize    int                           `json:"board_size"`
	StartingTeam game.Team                     `json:"starting_team"`
	LLMModel     string                        `json:"llm_model,omitempty"`
	Difficulty   string                        `json:"difficulty,omitempty"`
	CreatedAt    time.Time                     `json:"created_at"`
	UpdatedAt    time.Time                     `json:"updated_at"`
}

// NewRecord snapshots a game state into its stored form.
func NewRecord(s *game.State) *Record {
	c := s.Clone()
	cards := make([]game.Tile, len(c.Board))
	for i, t := range c.Board {
		cards[i] = game.Tile{Word: t.Word, Team: t.Team}
	}
	return &Record{
		Version:      RecordVersion,
		GameID:       c.GameID,
		Cards:        cards,
		Winner:       c.Winner,
		Log:          c.Log,
		ReasoningLog: c.ReasoningLog,
		FinalScore:   c.Score,
		Phase:        c.Phase,
		TurnCount:    c.TurnCount,
		Players:      c.Players,
		BoardSize:    c.BoardSize,
		StartingTeam: c.StartingTeam,
		LLMModel:     c.LLMModel,
		Difficulty:   c.Difficulty,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    time.Now(),
	}
}

// Summary is one row of a history listing. A record that could not be read
// is still listed, with Error set.
type Summary struct {
	GameID     string      `json:"game_id"`
	Winner     game.Team   `json:"winner,omitempty"`
	FinalScore *game.Score `json:"final_score,omitempty"`
	HasCards   bool        `json:"has_cards"`
	TurnCount  int         `json:"turn_count,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Error      string      `json:"error,omitempty"`
}

const errCorrupted = "corrupted"

func summarize(r *Record) Summary {
	score := r.FinalScore
	return Summary{
		GameID:     r.GameID,
		Winner:     r.Winner,
		FinalScore: &score,
		HasCards:   len(r.Cards) > 0,
		TurnCount:  r.TurnCount,
		UpdatedAt:  r.UpdatedAt,
	}
}

// decodeRecord parses a stored record and checks it is usable for replay.
func decodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.GameID == "" {
		return nil, errors.New("record has no game_id")
	}
	if r.Version > RecordVersion {
		return nil, errors.New("record version is newer than this build")
	}
	return &r, nil
}

// Store persists game records. Save replaces the previous record of the same
// game; a record is never deleted.
type Store interface {
	Save(ctx context.Context, r *Record) error
	Load(ctx context.Context, gameID string) (*Record, error)
	List(ctx context.Context) ([]Summary, error)
	Close() error
}
