package game

// View is what a single seat is allowed to see. Guessers never learn the
// team of an unrevealed tile; a hidden team is left empty.
type View struct {
	GameID           string       `json:"game_id"`
	Seat             Seat         `json:"seat"`
	Team             Team         `json:"team"`
	Role             Role         `json:"role"`
	Phase            Phase        `json:"phase"`
	Board            []Tile       `json:"board"`
	LastClue         *Clue        `json:"last_clue,omitempty"`
	RemainingGuesses int          `json:"remaining_guesses"`
	Score            Score        `json:"score"`
	ClueHistory      []ClueRecord `json:"clue_history"`
	TurnCount        int          `json:"turn_count"`
}

// ViewFor projects s onto what seat may see.
func ViewFor(s *State, seat Seat) *View {
	c := s.Clone()
	if seat.Role() != RoleSpymaster {
		for i := range c.Board {
			if !c.Board[i].Revealed {
				c.Board[i].Team = ""
			}
		}
	}
	return &View{
		GameID:           c.GameID,
		Seat:             seat,
		Team:             seat.Team(),
		Role:             seat.Role(),
		Phase:            c.Phase,
		Board:            c.Board,
		LastClue:         c.LastClue,
		RemainingGuesses: c.RemainingGuesses,
		Score:            c.Score,
		ClueHistory:      c.ClueHistory,
		TurnCount:        c.TurnCount,
	}
}

// Unrevealed returns the words still face down, in board order.
func (v *View) Unrevealed() []string {
	var words []string
	for _, t := range v.Board {
		if !t.Revealed {
			words = append(words, t.Word)
		}
	}
	return words
}

// UnrevealedOf returns face down words of a known team. Guesser views always
// return nothing here.
func (v *View) UnrevealedOf(team Team) []string {
	var words []string
	for _, t := range v.Board {
		if !t.Revealed && t.Team == team {
			words = append(words, t.Word)
		}
	}
	return words
}

// Revealed returns the tiles already turned over.
func (v *View) Revealed() []Tile {
	var tiles []Tile
	for _, t := range v.Board {
		if t.Revealed {
			tiles = append(tiles, t)
		}
	}
	return tiles
}

// IsUnrevealed reports whether word names a face down tile, ignoring case.
// The canonical board spelling is returned.
func (v *View) IsUnrevealed(word string) (string, bool) {
	s := State{Board: v.Board}
	idx, ok := s.FindTile(word)
	if !ok || v.Board[idx].Revealed {
		return "", false
	}
	return v.Board[idx].Word, true
}
