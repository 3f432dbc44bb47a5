package game

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoardInvariants(t *testing.T) {
	for _, size := range SupportedSizes() {
		for _, starting := range []Team{TeamRed, TeamBlue} {
			rng := rand.New(rand.NewPCG(uint64(size), 7))
			board, err := NewBoard(size, DefaultVocabulary, starting, rng)
			require.NoError(t, err)
			require.Len(t, board, size)

			counts := map[Team]int{}
			words := map[string]bool{}
			for _, tile := range board {
				counts[tile.Team]++
				assert.False(t, tile.Revealed)
				assert.False(t, words[tile.Word], "duplicate word %s", tile.Word)
				words[tile.Word] = true
			}

			assert.Equal(t, 1, counts[TeamAssassin], "size %d", size)
			assert.Equal(t, counts[starting], counts[starting.Opponent()]+1, "size %d", size)
			assert.Equal(t, size, counts[TeamRed]+counts[TeamBlue]+counts[TeamNeutral]+counts[TeamAssassin])
			assert.Positive(t, counts[TeamNeutral])
		}
	}
}

func TestNewBoardDistributionFor25(t *testing.T) {
	dist, err := Distribution(25, TeamRed)
	require.NoError(t, err)
	assert.Equal(t, 9, dist[TeamRed])
	assert.Equal(t, 8, dist[TeamBlue])
	assert.Equal(t, 7, dist[TeamNeutral])
	assert.Equal(t, 1, dist[TeamAssassin])
}

func TestNewBoardUnsupportedSize(t *testing.T) {
	_, err := NewBoard(30, DefaultVocabulary, TeamRed, nil)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "30")
}

func TestNewBoardVocabularyTooSmall(t *testing.T) {
	vocab := []string{"one", "two", "ONE", " two ", "three"}
	_, err := NewBoard(25, vocab, TeamRed, nil)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "3 distinct")
}

func TestNewBoardNormalizesWords(t *testing.T) {
	vocab := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		vocab = append(vocab, strings.Repeat("a", i+1))
	}
	board, err := NewBoard(25, vocab, TeamBlue, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	for _, tile := range board {
		assert.Equal(t, strings.ToUpper(tile.Word), tile.Word)
	}
}

func TestNewGameInitialState(t *testing.T) {
	s, err := NewGame(Options{
		GameID:       "abc",
		BoardSize:    36,
		StartingTeam: TeamBlue,
		Players:      map[Seat]Controller{SeatRedGuesser: ControllerAgent},
	})
	require.NoError(t, err)

	assert.Equal(t, PhaseBlueSpymaster, s.Phase)
	assert.Equal(t, TeamBlue, s.CurrentTurn)
	assert.Equal(t, 0, s.TurnCount)
	assert.Len(t, s.Board, 36)
	assert.Equal(t, []string{"Game initialized. Team BLUE starts."}, s.Log)
	assert.Equal(t, ControllerAgent, s.Controller(SeatRedGuesser))
	assert.Equal(t, ControllerHuman, s.Controller(SeatBlueSpymaster))
	assert.Empty(t, s.Winner)
}

func TestNewGameRejectsUnknownSeat(t *testing.T) {
	_, err := NewGame(Options{Players: map[Seat]Controller{"RED_CAPTAIN": ControllerAgent}})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
