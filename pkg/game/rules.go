package game

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
)

// ActionType names a move a seat can submit.
type ActionType string

const (
	ActionClue    ActionType = "CLUE"
	ActionGuess   ActionType = "GUESS"
	ActionEndTurn ActionType = "END_TURN"
)

// Action is a single move. Number is only read for clues.
type Action struct {
	Type   ActionType `json:"action_type"`
	Word   string     `json:"word,omitempty"`
	Number int        `json:"number,omitempty"`
}

func ClueAction(word string, number int) Action {
	return Action{Type: ActionClue, Word: word, Number: number}
}

func GuessAction(word string) Action {
	return Action{Type: ActionGuess, Word: word}
}

func EndTurnAction() Action {
	return Action{Type: ActionEndTurn}
}

func (a Action) String() string {
	switch a.Type {
	case ActionClue:
		return fmt.Sprintf("CLUE %s %d", a.Word, a.Number)
	case ActionGuess:
		return "GUESS " + a.Word
	}
	return string(a.Type)
}

// Options configures NewGame.
type Options struct {
	GameID       string
	BoardSize    int
	Vocabulary   []string
	StartingTeam Team
	Players      map[Seat]Controller
	Difficulty   string
	LLMModel     string
	Rand         *rand.Rand
	Now          time.Time
}

// NewGame generates a board and returns the initial state, with the starting
// team's spymaster to move.
func NewGame(opts Options) (*State, error) {
	if opts.BoardSize == 0 {
		opts.BoardSize = 25
	}
	if opts.StartingTeam == "" {
		opts.StartingTeam = TeamRed
	}
	if len(opts.Vocabulary) == 0 {
		opts.Vocabulary = DefaultVocabulary
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	board, err := NewBoard(opts.BoardSize, opts.Vocabulary, opts.StartingTeam, opts.Rand)
	if err != nil {
		return nil, err
	}

	players := DefaultPlayers()
	for seat, c := range opts.Players {
		if !seat.Valid() {
			return nil, &ConfigError{Reason: fmt.Sprintf("unknown seat %q", seat)}
		}
		players[seat] = c
	}

	return &State{
		GameID:       opts.GameID,
		Board:        board,
		Phase:        PhaseFor(SeatOf(opts.StartingTeam, RoleSpymaster)),
		CurrentTurn:  opts.StartingTeam,
		Log:          []string{startLine(opts.StartingTeam)},
		Players:      players,
		ReasoningLog: []ReasoningEntry{},
		ClueHistory:  []ClueRecord{},
		Difficulty:   opts.Difficulty,
		LLMModel:     opts.LLMModel,
		BoardSize:    opts.BoardSize,
		StartingTeam: opts.StartingTeam,
		CreatedAt:    opts.Now,
	}, nil
}

var clueTokenRe = regexp.MustCompile(`^[\p{L}\p{N}']+$`)

// ValidateClue checks the mechanical clue rules against the unrevealed words
// of the board. It does not look at the phase.
func ValidateClue(s *State, word string, number int) *Rejection {
	word = strings.TrimSpace(word)
	if word == "" {
		return reject(RejectInvalidClue, "clue word is empty")
	}
	if !clueTokenRe.MatchString(word) {
		return reject(RejectInvalidClue, "clue %q must be a single word", word)
	}
	if number < 0 {
		return reject(RejectInvalidClue, "clue number must not be negative, got %d", number)
	}
	if number > len(s.Board) {
		return reject(RejectInvalidClue, "clue number %d exceeds the %d words on the board", number, len(s.Board))
	}

	clue := strings.ToUpper(word)
	for _, tile := range s.Board {
		if tile.Revealed {
			continue
		}
		boardWord := strings.ToUpper(tile.Word)
		switch {
		case boardWord == clue:
			return reject(RejectInvalidClue, "clue cannot be a word currently on the board")
		case strings.Contains(clue, boardWord):
			return reject(RejectInvalidClue, "clue %q cannot contain the board word %q", word, tile.Word)
		case strings.Contains(boardWord, clue):
			return reject(RejectInvalidClue, "clue %q cannot be part of the board word %q", word, tile.Word)
		}
	}
	return nil
}

// Apply validates action for seat against state and returns the next state.
// state is never modified. On a *Rejection the returned state is the input.
func Apply(state *State, seat Seat, action Action) (*State, error) {
	if state.IsOver() {
		return state, reject(RejectGameOver, "game is over")
	}
	expected, _ := state.Phase.Seat()
	if seat != expected {
		return state, reject(RejectIllegalPhase, "it is %s's move, not %s", expected, seat)
	}

	next := state.Clone()
	var r *Rejection
	switch action.Type {
	case ActionClue:
		r = applyClue(next, action)
	case ActionGuess:
		r = applyGuess(next, action)
	case ActionEndTurn:
		r = applyEndTurn(next)
	default:
		r = reject(RejectBadAction, "unknown action type %q", action.Type)
	}
	if r != nil {
		return state, r
	}

	next.TurnCount++
	return next, nil
}

func applyClue(s *State, a Action) *Rejection {
	if !s.Phase.IsSpymaster() {
		return reject(RejectIllegalPhase, "it is currently %s, only spymasters give clues", s.Phase)
	}
	if r := ValidateClue(s, a.Word, a.Number); r != nil {
		return r
	}

	team := s.CurrentTurn
	clue := Clue{Word: strings.TrimSpace(a.Word), Number: a.Number}
	s.LastClue = &clue
	s.RemainingGuesses = clue.Number + 1
	s.Log = append(s.Log, clueLine(team, clue))
	s.ClueHistory = append(s.ClueHistory, ClueRecord{
		Team:    team,
		Clue:    clue.Word,
		Number:  clue.Number,
		Guesses: []GuessRecord{},
	})
	s.Phase = PhaseFor(SeatOf(team, RoleGuesser))
	return nil
}

func applyGuess(s *State, a Action) *Rejection {
	if !s.Phase.IsGuesser() {
		return reject(RejectIllegalPhase, "it is currently %s, only guessers can guess", s.Phase)
	}
	idx, ok := s.FindTile(a.Word)
	if !ok {
		return reject(RejectUnknownTile, "%q is not on the board", a.Word)
	}
	if s.Board[idx].Revealed {
		return reject(RejectUnknownTile, "%q is already revealed", s.Board[idx].Word)
	}

	team := s.CurrentTurn
	tile := &s.Board[idx]
	tile.Revealed = true
	s.Score = scoreOf(s.Board)
	if n := len(s.ClueHistory); n > 0 {
		s.ClueHistory[n-1].Guesses = append(s.ClueHistory[n-1].Guesses, GuessRecord{Word: tile.Word, Result: tile.Team})
	}

	switch tile.Team {
	case TeamAssassin:
		s.Log = append(s.Log, guessLine(team, tile.Word, outcomeAssassin))
		finish(s, team.Opponent())
	case TeamNeutral:
		s.Log = append(s.Log, guessLine(team, tile.Word, outcomeNeutral))
		endTurn(s)
	case team:
		s.Log = append(s.Log, guessLine(team, tile.Word, outcomeCorrect))
		if s.Remaining(team) == 0 {
			finish(s, team)
			return nil
		}
		s.RemainingGuesses--
		if s.RemainingGuesses <= 0 {
			s.Log = append(s.Log, lineOutOfGuesses)
			endTurn(s)
		}
	default:
		s.Log = append(s.Log, guessLine(team, tile.Word, outcomeOpponent))
		if s.Remaining(tile.Team) == 0 {
			finish(s, tile.Team)
			return nil
		}
		endTurn(s)
	}
	return nil
}

func applyEndTurn(s *State) *Rejection {
	if !s.Phase.IsGuesser() {
		return reject(RejectIllegalPhase, "it is currently %s, only guessers can end the turn", s.Phase)
	}
	s.Log = append(s.Log, endTurnLine(s.CurrentTurn))
	endTurn(s)
	return nil
}

func endTurn(s *State) {
	s.LastClue = nil
	s.RemainingGuesses = 0
	s.CurrentTurn = s.CurrentTurn.Opponent()
	s.Phase = PhaseFor(SeatOf(s.CurrentTurn, RoleSpymaster))
}

func finish(s *State, winner Team) {
	s.Winner = winner
	s.Phase = PhaseGameOver
	s.LastClue = nil
	s.RemainingGuesses = 0
	s.Log = append(s.Log, winLine(winner))
}

func scoreOf(board []Tile) Score {
	var sc Score
	for _, t := range board {
		if !t.Revealed {
			continue
		}
		switch t.Team {
		case TeamRed:
			sc.Red++
		case TeamBlue:
			sc.Blue++
		}
	}
	return sc
}
