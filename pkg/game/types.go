package game

import (
	"fmt"
	"strings"
	"time"
)

// Team is the affiliation of a tile. Only RED and BLUE take turns.
type Team string

const (
	TeamRed      Team = "RED"
	TeamBlue     Team = "BLUE"
	TeamNeutral  Team = "NEUTRAL"
	TeamAssassin Team = "ASSASSIN"
)

// Opponent returns the other playing team. Non-playing teams return "".
func (t Team) Opponent() Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	}
	return ""
}

// IsPlaying reports whether the team takes turns.
func (t Team) IsPlaying() bool {
	return t == TeamRed || t == TeamBlue
}

// ParseTeam accepts RED or BLUE in any case.
func ParseTeam(s string) (Team, error) {
	t := Team(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsPlaying() {
		return "", fmt.Errorf("unknown team %q", s)
	}
	return t, nil
}

// Role is the job a seat performs within its team.
type Role string

const (
	RoleSpymaster Role = "SPYMASTER"
	RoleGuesser   Role = "GUESSER"
)

// Seat identifies one of the four player positions.
type Seat string

const (
	SeatRedSpymaster  Seat = "RED_SPYMASTER"
	SeatRedGuesser    Seat = "RED_GUESSER"
	SeatBlueSpymaster Seat = "BLUE_SPYMASTER"
	SeatBlueGuesser   Seat = "BLUE_GUESSER"
)

// AllSeats lists the seats in turn order for a RED start.
var AllSeats = []Seat{SeatRedSpymaster, SeatRedGuesser, SeatBlueSpymaster, SeatBlueGuesser}

// SeatOf builds the seat for a team and role.
func SeatOf(team Team, role Role) Seat {
	return Seat(string(team) + "_" + string(role))
}

// Team returns the team owning the seat.
func (s Seat) Team() Team {
	team, _, _ := strings.Cut(string(s), "_")
	return Team(team)
}

// Role returns the role of the seat.
func (s Seat) Role() Role {
	_, role, _ := strings.Cut(string(s), "_")
	return Role(role)
}

// Valid reports whether s is one of the four seats.
func (s Seat) Valid() bool {
	for _, seat := range AllSeats {
		if s == seat {
			return true
		}
	}
	return false
}

// ParseSeat accepts seat names such as "red_spymaster".
func ParseSeat(s string) (Seat, error) {
	seat := Seat(strings.ToUpper(strings.TrimSpace(s)))
	if !seat.Valid() {
		return "", fmt.Errorf("unknown seat %q", s)
	}
	return seat, nil
}

// Phase drives which seat may act next.
type Phase string

const (
	PhaseRedSpymaster  Phase = "RED_SPYMASTER"
	PhaseRedGuesser    Phase = "RED_GUESSER"
	PhaseBlueSpymaster Phase = "BLUE_SPYMASTER"
	PhaseBlueGuesser   Phase = "BLUE_GUESSER"
	PhaseGameOver      Phase = "GAME_OVER"
)

// PhaseFor returns the phase in which the given seat acts.
func PhaseFor(seat Seat) Phase {
	return Phase(seat)
}

// Seat maps a non-terminal phase to the seat that acts in it.
func (p Phase) Seat() (Seat, bool) {
	if p == PhaseGameOver {
		return "", false
	}
	seat := Seat(p)
	return seat, seat.Valid()
}

// IsSpymaster reports whether a clue is expected.
func (p Phase) IsSpymaster() bool {
	return p == PhaseRedSpymaster || p == PhaseBlueSpymaster
}

// IsGuesser reports whether a guess is expected.
func (p Phase) IsGuesser() bool {
	return p == PhaseRedGuesser || p == PhaseBlueGuesser
}

// Controller tells who fills a seat.
type Controller string

const (
	ControllerHuman Controller = "human"
	ControllerAgent Controller = "agent"
)

// ParseController accepts "human" or "agent" in any case. "ai" is accepted as
// an alias of "agent".
func ParseController(s string) (Controller, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "human":
		return ControllerHuman, nil
	case "agent", "ai":
		return ControllerAgent, nil
	}
	return "", fmt.Errorf("unknown controller %q", s)
}

// Tile is one card on the board. Word and Team never change after the board
// is generated; Revealed only ever goes from false to true.
type Tile struct {
	Word     string `json:"word"`
	Team     Team   `json:"team"`
	Revealed bool   `json:"revealed"`
}

// Clue is a spymaster hint.
type Clue struct {
	Word   string `json:"word"`
	Number int    `json:"number"`
}

func (c Clue) String() string {
	return fmt.Sprintf("%s %d", c.Word, c.Number)
}

// GuessRecord is the outcome of one guess made under a clue.
type GuessRecord struct {
	Word   string `json:"word"`
	Result Team   `json:"result"`
}

// ClueRecord groups a clue with the guesses made under it.
type ClueRecord struct {
	Team    Team          `json:"team"`
	Clue    string        `json:"clue"`
	Number  int           `json:"number"`
	Guesses []GuessRecord `json:"guesses"`
}

// ReasoningEntry is the explanation an agent returned with a move. Display
// only; it never influences the rules.
type ReasoningEntry struct {
	Role      string    `json:"role"`
	Action    string    `json:"action"`
	Reasoning string    `json:"reasoning"`
	Timestamp time.Time `json:"timestamp"`
}

// Score counts revealed tiles of each team.
type Score struct {
	Red  int `json:"RED"`
	Blue int `json:"BLUE"`
}

// Of returns the score of a playing team.
func (s Score) Of(t Team) int {
	if t == TeamBlue {
		return s.Blue
	}
	return s.Red
}

// State is the authoritative record of a single match.
type State struct {
	GameID           string              `json:"game_id"`
	Board            []Tile              `json:"board"`
	Phase            Phase               `json:"phase"`
	CurrentTurn      Team                `json:"current_turn"`
	RemainingGuesses int                 `json:"remaining_guesses"`
	Score            Score               `json:"score"`
	LastClue         *Clue               `json:"last_clue,omitempty"`
	TurnCount        int                 `json:"turn_count"`
	Log              []string            `json:"log"`
	Players          map[Seat]Controller `json:"players"`
	Winner           Team                `json:"winner,omitempty"`
	ReasoningLog     []ReasoningEntry    `json:"reasoning_log"`
	ClueHistory      []ClueRecord        `json:"clue_history"`
	Difficulty       string              `json:"difficulty,omitempty"`
	LLMModel         string              `json:"llm_model,omitempty"`
	BoardSize        int                 `json:"board_size"`
	StartingTeam     Team                `json:"starting_team"`
	CreatedAt        time.Time           `json:"created_at"`
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Board = append([]Tile(nil), s.Board...)
	c.Log = append([]string(nil), s.Log...)
	c.ReasoningLog = append([]ReasoningEntry(nil), s.ReasoningLog...)
	if s.LastClue != nil {
		clue := *s.LastClue
		c.LastClue = &clue
	}
	if s.Players != nil {
		c.Players = make(map[Seat]Controller, len(s.Players))
		for k, v := range s.Players {
			c.Players[k] = v
		}
	}
	if s.ClueHistory != nil {
		c.ClueHistory = make([]ClueRecord, len(s.ClueHistory))
		for i, r := range s.ClueHistory {
			r.Guesses = append([]GuessRecord(nil), r.Guesses...)
			c.ClueHistory[i] = r
		}
	}
	return &c
}

// Controller returns who fills a seat. Unknown seats default to human.
func (s *State) Controller(seat Seat) Controller {
	if c, ok := s.Players[seat]; ok {
		return c
	}
	return ControllerHuman
}

// IsOver reports whether the game reached its terminal phase.
func (s *State) IsOver() bool {
	return s.Phase == PhaseGameOver
}

// AgentDue reports whether the seat expected to move next is agent
// controlled.
func (s *State) AgentDue() bool {
	seat, ok := s.Phase.Seat()
	if !ok {
		return false
	}
	return s.Controller(seat) == ControllerAgent
}

// Remaining counts unrevealed tiles of a team.
func (s *State) Remaining(t Team) int {
	n := 0
	for _, tile := range s.Board {
		if tile.Team == t && !tile.Revealed {
			n++
		}
	}
	return n
}

// FindTile locates an unrevealed or revealed tile by word, ignoring case.
func (s *State) FindTile(word string) (int, bool) {
	word = strings.TrimSpace(word)
	for i, tile := range s.Board {
		if strings.EqualFold(tile.Word, word) {
			return i, true
		}
	}
	return -1, false
}

// DefaultPlayers seats humans everywhere.
func DefaultPlayers() map[Seat]Controller {
	players := make(map[Seat]Controller, len(AllSeats))
	for _, seat := range AllSeats {
		players[seat] = ControllerHuman
	}
	return players
}
