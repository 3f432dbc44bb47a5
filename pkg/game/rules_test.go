package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture returns a small hand-built board with RED to give a clue.
func fixture() *State {
	return &State{
		GameID: "fixture",
		Board: []Tile{
			{Word: "APPLE", Team: TeamRed},
			{Word: "BANANA", Team: TeamRed},
			{Word: "CHERRY", Team: TeamRed},
			{Word: "DOG", Team: TeamBlue},
			{Word: "EAGLE", Team: TeamBlue},
			{Word: "FOG", Team: TeamNeutral},
			{Word: "GHOST", Team: TeamAssassin},
			{Word: "ICE CREAM", Team: TeamNeutral},
		},
		Phase:        PhaseRedSpymaster,
		CurrentTurn:  TeamRed,
		Log:          []string{startLine(TeamRed)},
		Players:      DefaultPlayers(),
		StartingTeam: TeamRed,
	}
}

func mustApply(t *testing.T, s *State, seat Seat, a Action) *State {
	t.Helper()
	next, err := Apply(s, seat, a)
	require.NoError(t, err)
	return next
}

func requireRejection(t *testing.T, err error, code RejectionCode) *Rejection {
	t.Helper()
	r, ok := AsRejection(err)
	require.True(t, ok, "expected rejection, got %v", err)
	assert.Equal(t, code, r.Code)
	return r
}

func TestClueGrantsNumberPlusOneGuesses(t *testing.T) {
	s := fixture()
	next := mustApply(t, s, SeatRedSpymaster, ClueAction("fruit", 2))

	assert.Equal(t, PhaseRedGuesser, next.Phase)
	assert.Equal(t, 3, next.RemainingGuesses)
	require.NotNil(t, next.LastClue)
	assert.Equal(t, Clue{Word: "fruit", Number: 2}, *next.LastClue)
	assert.Equal(t, 1, next.TurnCount)
	assert.Equal(t, "RED Spymaster gives clue: fruit 2", next.Log[len(next.Log)-1])
	require.Len(t, next.ClueHistory, 1)
	assert.Equal(t, ClueRecord{Team: TeamRed, Clue: "fruit", Number: 2, Guesses: []GuessRecord{}}, next.ClueHistory[0])

	// input untouched
	assert.Equal(t, PhaseRedSpymaster, s.Phase)
	assert.Equal(t, 0, s.TurnCount)
	assert.Len(t, s.Log, 1)
}

func TestClueZeroGrantsOneGuess(t *testing.T) {
	next := mustApply(t, fixture(), SeatRedSpymaster, ClueAction("nothing", 0))
	assert.Equal(t, 1, next.RemainingGuesses)
}

func TestClueRejections(t *testing.T) {
	cases := []struct {
		name string
		word string
		n    int
	}{
		{"board word", "apple", 1},
		{"board word any case", "Dog", 1},
		{"multi token", "ocean waves", 2},
		{"hyphenated", "ice-cold", 1},
		{"empty", "  ", 1},
		{"negative", "fruit", -1},
		{"larger than board", "fruit", 9},
		{"huge", "fruit", math.MaxInt},
		{"contains board word", "pineapple", 1},
		{"part of board word", "nana", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := fixture()
			next, err := Apply(s, SeatRedSpymaster, ClueAction(tc.word, tc.n))
			requireRejection(t, err, RejectInvalidClue)
			assert.Same(t, s, next)
			assert.Equal(t, 0, s.TurnCount)
		})
	}
}

func TestClueMatchingRevealedWordIsAllowed(t *testing.T) {
	s := fixture()
	s.Board[0].Revealed = true
	_, err := Apply(s, SeatRedSpymaster, ClueAction("apple", 1))
	assert.NoError(t, err)
}

func TestWrongSeatIsIllegalPhase(t *testing.T) {
	s := fixture()
	_, err := Apply(s, SeatRedGuesser, GuessAction("APPLE"))
	requireRejection(t, err, RejectIllegalPhase)

	_, err = Apply(s, SeatBlueSpymaster, ClueAction("fruit", 1))
	requireRejection(t, err, RejectIllegalPhase)
}

func TestActionOutOfPhaseIsIllegal(t *testing.T) {
	s := fixture()
	_, err := Apply(s, SeatRedSpymaster, GuessAction("APPLE"))
	requireRejection(t, err, RejectIllegalPhase)

	_, err = Apply(s, SeatRedSpymaster, EndTurnAction())
	requireRejection(t, err, RejectIllegalPhase)

	s = mustApply(t, s, SeatRedSpymaster, ClueAction("fruit", 2))
	_, err = Apply(s, SeatRedGuesser, ClueAction("more", 1))
	requireRejection(t, err, RejectIllegalPhase)
}

func TestUnknownActionType(t *testing.T) {
	_, err := Apply(fixture(), SeatRedSpymaster, Action{Type: "PASS"})
	requireRejection(t, err, RejectBadAction)
}

func TestCorrectGuessContinuesTurn(t *testing.T) {
	s := mustApply(t, fixture(), SeatRedSpymaster, ClueAction("fruit", 2))
	s = mustApply(t, s, SeatRedGuesser, GuessAction("apple"))

	assert.Equal(t, PhaseRedGuesser, s.Phase)
	assert.Equal(t, 2, s.RemainingGuesses)
	assert.True(t, s.Board[0].Revealed)
	assert.Equal(t, Score{Red: 1}, s.Score)
	assert.Equal(t, "RED guesses APPLE... Correct!", s.Log[len(s.Log)-1])
	assert.Equal(t, []GuessRecord{{Word: "APPLE", Result: TeamRed}}, s.ClueHistory[0].Guesses)
	assert.Equal(t, 2, s.TurnCount)
}

func TestExhaustingGuessesEndsTurn(t *testing.T) {
	s := mustApply(t, fixture(), SeatRedSpymaster, ClueAction("fruit", 0))
	s = mustApply(t, s, SeatRedGuesser, GuessAction("APPLE"))

	assert.Equal(t, PhaseBlueSpymaster, s.Phase)
	assert.Equal(t, TeamBlue, s.CurrentTurn)
	assert.Equal(t, 0, s.RemainingGuesses)
	assert.Nil(t, s.LastClue)
	assert.Equal(t, lineOutOfGuesses, s.Log[len(s.Log)-1])
}

func TestNeutralGuessEndsTurn(t *testing.T) {
	s := mustApply(t, fixture(), SeatRedSpymaster, ClueAction("weather", 3))
	s = mustApply(t, s, SeatRedGuesser, GuessAction("FOG"))

	assert.Equal(t, PhaseBlueSpymaster, s.Phase)
	assert.Nil(t, s.LastClue)
	assert.Equal(t, "RED guesses FOG... It's a Civilian. Turn Over.", s.Log[len(s.Log)-1])
}

func TestOpponentGuessEndsTurn(t *testing.T) {
	s := mustApply(t, fixture(), SeatRedSpymaster, ClueAction("pet", 3))
	s = mustApply(t, s, SeatRedGuesser, GuessAction("DOG"))

	assert.Equal(t, PhaseBlueSpymaster, s.Phase)
	assert.Equal(t, Score{Blue: 1}, s.Score)
	assert.Equal(t, "RED guesses DOG... It's the Opponent's card! Turn Over.", s.Log[len(s.Log)-1])
}

func TestOpponentGuessCanHandOpponentTheWin(t *testing.T) {
	s := fixture()
	s.Board[3].Revealed = true
	s = mustApply(t, s, SeatRedSpymaster, ClueAction("bird", 1))
	s = mustApply(t, s, SeatRedGuesser, GuessAction("EAGLE"))

	assert.Equal(t, PhaseGameOver, s.Phase)
	assert.Equal(t, TeamBlue, s.Winner)
	assert.Equal(t, "Team BLUE wins!", s.Log[len(s.Log)-1])
}

func TestAssassinLosesImmediately(t *testing.T) {
	s := mustApply(t, fixture(), SeatRedSpymaster, ClueAction("spirit", 1))
	s = mustApply(t, s, SeatRedGuesser, GuessAction("ghost"))

	assert.Equal(t, PhaseGameOver, s.Phase)
	assert.Equal(t, TeamBlue, s.Winner)
	assert.Contains(t, s.Log, "RED guesses GHOST... It's the ASSASSIN! Game Over.")

	_, err := Apply(s, SeatBlueSpymaster, ClueAction("again", 1))
	requireRejection(t, err, RejectGameOver)
}

func TestRevealingAllOwnTilesWins(t *testing.T) {
	s := fixture()
	s.Board[0].Revealed = true
	s.Board[1].Revealed = true
	s = mustApply(t, s, SeatRedSpymaster, ClueAction("red", 1))
	s = mustApply(t, s, SeatRedGuesser, GuessAction("cherry"))

	assert.Equal(t, PhaseGameOver, s.Phase)
	assert.Equal(t, TeamRed, s.Winner)
	assert.Equal(t, Score{Red: 3}, s.Score)
}

func TestUnknownWordGuessIsRejected(t *testing.T) {
	s := mustApply(t, fixture(), SeatRedSpymaster, ClueAction("fruit", 1))
	before := s.TurnCount

	next, err := Apply(s, SeatRedGuesser, GuessAction("ZEBRA"))
	requireRejection(t, err, RejectUnknownTile)
	assert.Equal(t, before, next.TurnCount)

	s = mustApply(t, s, SeatRedGuesser, GuessAction("APPLE"))
	_, err = Apply(s, SeatRedGuesser, GuessAction("APPLE"))
	requireRejection(t, err, RejectUnknownTile)
}

func TestManualEndTurn(t *testing.T) {
	s := mustApply(t, fixture(), SeatRedSpymaster, ClueAction("fruit", 2))
	s = mustApply(t, s, SeatRedGuesser, EndTurnAction())

	assert.Equal(t, PhaseBlueSpymaster, s.Phase)
	assert.Equal(t, "RED ends turn manually.", s.Log[len(s.Log)-1])
	assert.Equal(t, 2, s.TurnCount)
}

func TestMultiWordTileGuess(t *testing.T) {
	s := mustApply(t, fixture(), SeatRedSpymaster, ClueAction("dessert", 1))
	s = mustApply(t, s, SeatRedGuesser, GuessAction("ice cream"))

	team, word, ok := ParseGuessLine(s.Log[len(s.Log)-1])
	require.True(t, ok)
	assert.Equal(t, TeamRed, team)
	assert.Equal(t, "ICE CREAM", word)
}

func TestCloneIsDeep(t *testing.T) {
	s := mustApply(t, fixture(), SeatRedSpymaster, ClueAction("fruit", 2))
	c := s.Clone()
	c.Board[0].Revealed = true
	c.LastClue.Number = 9
	c.Players[SeatRedGuesser] = ControllerAgent
	c.ClueHistory[0].Guesses = append(c.ClueHistory[0].Guesses, GuessRecord{Word: "X"})

	assert.False(t, s.Board[0].Revealed)
	assert.Equal(t, 2, s.LastClue.Number)
	assert.Equal(t, ControllerHuman, s.Players[SeatRedGuesser])
	assert.Empty(t, s.ClueHistory[0].Guesses)
}

func TestViewHidesUnrevealedTeamsFromGuesser(t *testing.T) {
	s := fixture()
	s.Board[3].Revealed = true

	g := ViewFor(s, SeatRedGuesser)
	for _, tile := range g.Board {
		if tile.Revealed {
			assert.Equal(t, TeamBlue, tile.Team)
		} else {
			assert.Empty(t, tile.Team)
		}
	}
	assert.Empty(t, g.UnrevealedOf(TeamRed))

	sm := ViewFor(s, SeatRedSpymaster)
	assert.Equal(t, []string{"APPLE", "BANANA", "CHERRY"}, sm.UnrevealedOf(TeamRed))
	assert.Equal(t, TeamAssassin, sm.Board[6].Team)

	word, ok := g.IsUnrevealed("banana")
	assert.True(t, ok)
	assert.Equal(t, "BANANA", word)
	_, ok = g.IsUnrevealed("dog")
	assert.False(t, ok)
}

func TestParseClueLine(t *testing.T) {
	team, clue, ok := ParseClueLine("BLUE Spymaster gives clue: ocean 3")
	require.True(t, ok)
	assert.Equal(t, TeamBlue, team)
	assert.Equal(t, Clue{Word: "ocean", Number: 3}, clue)

	_, _, ok = ParseClueLine("Out of guesses. Turn Over.")
	assert.False(t, ok)
}
