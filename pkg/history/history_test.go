package history

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codenames/pkg/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// playedGame plays a few deterministic moves on a generated 5x5 board.
func playedGame(t *testing.T) *game.State {
	t.Helper()
	s, err := game.NewGame(game.Options{GameID: "g1", Rand: rand.New(rand.NewPCG(3, 4))})
	require.NoError(t, err)

	var red []string
	for _, tile := range s.Board {
		if tile.Team == game.TeamRed {
			red = append(red, tile.Word)
		}
	}

	steps := []struct {
		seat   game.Seat
		action game.Action
	}{
		{game.SeatRedSpymaster, game.ClueAction("zyzzyva", 2)},
		{game.SeatRedGuesser, game.GuessAction(red[0])},
		{game.SeatRedGuesser, game.GuessAction(red[1])},
		{game.SeatRedGuesser, game.EndTurnAction()},
	}
	for _, st := range steps {
		s, err = game.Apply(s, st.seat, st.action)
		require.NoError(t, err)
	}
	s.ReasoningLog = append(s.ReasoningLog,
		game.ReasoningEntry{Role: "RED SPYMASTER", Action: "Clue: zyzzyva 2", Reasoning: "two of ours"},
		game.ReasoningEntry{Role: "RED GUESSER", Action: fmt.Sprintf("Guess Plan: %q", []string{red[0], red[1]}), Reasoning: "fits"},
	)
	return s
}

func TestReconstructMatchesLiveBoard(t *testing.T) {
	s := playedGame(t)
	rec := NewRecord(s)

	for _, c := range rec.Cards {
		assert.False(t, c.Revealed)
	}

	final := Reconstruct(rec.Cards, rec.Log, len(rec.Log))
	assert.Equal(t, s.Board, final)

	// deterministic
	assert.Equal(t, final, Reconstruct(rec.Cards, rec.Log, len(rec.Log)))

	// before any guess nothing is revealed
	early := Reconstruct(rec.Cards, rec.Log, 2)
	for _, c := range early {
		assert.False(t, c.Revealed)
	}

	// k past the end is clamped
	assert.Equal(t, final, Reconstruct(rec.Cards, rec.Log, 999))
	assert.Equal(t, rec.Cards, Reconstruct(rec.Cards, rec.Log, -1))
}

func TestReplayAttachesReasoning(t *testing.T) {
	rec := NewRecord(playedGame(t))
	steps := Replay(rec)
	require.Len(t, steps, len(rec.Log))

	require.NotNil(t, steps[1].Reasoning, rec.Log[1])
	assert.Equal(t, "Clue: zyzzyva 2", steps[1].Reasoning.Action)
	require.NotNil(t, steps[2].Reasoning)
	assert.Contains(t, steps[2].Reasoning.Action, "Guess Plan")
	require.NotNil(t, steps[3].Reasoning)
	assert.Nil(t, steps[0].Reasoning)
	assert.Nil(t, steps[len(steps)-1].Reasoning)
}

func TestCorrelateReasoningIgnoresOtherTeam(t *testing.T) {
	entries := []game.ReasoningEntry{
		{Role: "BLUE SPYMASTER", Action: "Clue: sea 2"},
		{Role: "RED SPYMASTER", Action: "Clue: sea 2"},
	}
	idx, ok := CorrelateReasoning("RED Spymaster gives clue: sea 2", entries, 0)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = CorrelateReasoning("Out of guesses. Turn Over.", entries, 0)
	assert.False(t, ok)
}

func TestCorrelateGuessMatchesWholeWords(t *testing.T) {
	entries := []game.ReasoningEntry{
		{Role: "RED GUESSER", Action: `Guess Plan: ["ICE CREAM"]`},
		{Role: "RED GUESSER", Action: `Guess Plan: ["ICE" "DOG"]`},
	}
	idx, ok := CorrelateReasoning("RED guesses ICE...Neutral.", entries, 0)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = CorrelateReasoning("RED guesses ICE CREAM...Correct!", entries, 0)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	// bare words from older records
	idx, ok = CorrelateReasoning("RED guesses DOG...Wrong.", []game.ReasoningEntry{
		{Role: "RED GUESSER", Action: "Guess Plan: [HOTDOG]"},
		{Role: "RED GUESSER", Action: "Guess Plan: [APPLE DOG]"},
	}, 0)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestFileStoreRoundTripAndList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	s := playedGame(t)
	rec := NewRecord(s)
	require.NoError(t, store.Save(ctx, rec))

	loaded, err := store.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, rec.Log, loaded.Log)
	assert.Equal(t, rec.Cards, loaded.Cards)
	assert.Equal(t, RecordVersion, loaded.Version)
	assert.Equal(t, s.Score, loaded.FinalScore)

	// overwrite keeps one file
	s.Log = append(s.Log, "extra")
	require.NoError(t, store.Save(ctx, NewRecord(s)))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "game_history_broken.json"), []byte("{not json"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := map[string]Summary{}
	for _, item := range list {
		byID[item.GameID] = item
	}
	assert.Equal(t, "corrupted", byID["broken"].Error)
	assert.False(t, byID["broken"].HasCards)
	assert.Empty(t, byID["g1"].Error)
	assert.True(t, byID["g1"].HasCards)
	require.NotNil(t, byID["g1"].FinalScore)
	assert.Equal(t, 2, byID["g1"].FinalScore.Red)
}

func TestFileStoreLoadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreSanitizesIDs(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	rec := &Record{Version: RecordVersion, GameID: "../escape", UpdatedAt: time.Now()}
	require.NoError(t, store.Save(context.Background(), rec))

	_, err = os.Stat(filepath.Join(dir, "game_history____escape.json"))
	assert.NoError(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisConfig{Addr: addr, DB: 15})
	require.NoError(t, err)
	defer store.Close()

	rec := NewRecord(playedGame(t))
	rec.GameID = "redis-" + time.Now().Format("150405.000")
	require.NoError(t, store.Save(ctx, rec))

	loaded, err := store.Load(ctx, rec.GameID)
	require.NoError(t, err)
	assert.Equal(t, rec.Log, loaded.Log)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	_, err = store.Load(ctx, "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}
