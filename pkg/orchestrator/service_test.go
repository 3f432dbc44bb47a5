package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codenames/pkg/agent"
	"codenames/pkg/api"
	"codenames/pkg/config"
	"codenames/pkg/game"
	"codenames/pkg/history"
	"codenames/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]*history.Record
	fail    error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*history.Record)}
}

func (m *memStore) Save(ctx context.Context, r *history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.saves++
	m.records[r.GameID] = r
	return nil
}

func (m *memStore) Load(ctx context.Context, id string) (*history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	return r, nil
}

func (m *memStore) List(ctx context.Context) ([]history.Summary, error) { return nil, nil }
func (m *memStore) Close() error { return nil }

type recorder struct {
	mu      sync.Mutex
	updates []api.StateUpdate
}

func (r *recorder) Publish(u api.StateUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) all() []api.StateUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.StateUpdate(nil), r.updates...)
}

// gatewayFunc adapts a function to agent.Gateway.
type gatewayFunc func(ctx context.Context, req agent.MoveRequest) (*agent.Decision, error)

func (f gatewayFunc) RequestMove(ctx context.Context, req agent.MoveRequest) (*agent.Decision, error) {
	return f(ctx, req)
}

func newService(t *testing.T, gw agent.Gateway, mutate func(*config.SystemConfig)) (*Service, *memStore, *recorder) {
	t.Helper()
	sys := config.DefaultSystemConfig()
	sys.AutoPlayDelayMs = 0
	if mutate != nil {
		mutate(sys)
	}
	store := newMemStore()
	pub := &recorder{}
	svc := New(Options{
		Agents: gw,
		Store:  store,
		Live:   config.NewLive(sys),
		Rand:   rand.New(rand.NewPCG(1, 2)),
	})
	svc.SetPublisher(pub)
	t.Cleanup(svc.Close)
	return svc, store, pub
}

// guessingState is RED_GUESSER on a small board after the clue FRUIT 2.
func guessingState(id string) *game.State {
	players := game.DefaultPlayers()
	for seat := range players {
		players[seat] = game.ControllerAgent
	}
	return &game.State{
		GameID: id,
		Board: []game.Tile{
			{Word: "APPLE", Team: game.TeamRed},
			{Word: "BANANA", Team: game.TeamRed},
			{Word: "CHERRY", Team: game.TeamRed},
			{Word: "DOG", Team: game.TeamBlue},
			{Word: "EAGLE", Team: game.TeamBlue},
			{Word: "FOG", Team: game.TeamNeutral},
			{Word: "GHOST", Team: game.TeamAssassin},
		},
		Phase:            game.PhaseRedGuesser,
		CurrentTurn:      game.TeamRed,
		LastClue:         &game.Clue{Word: "FRUIT", Number: 2},
		RemainingGuesses: 3,
		TurnCount:        1,
		Log:              []string{"Game initialized. Team RED starts.", "RED Spymaster gives clue: FRUIT 2"},
		Players:          players,
		ClueHistory:      []game.ClueRecord{{Team: game.TeamRed, Clue: "FRUIT", Number: 2}},
		BoardSize:        7,
		StartingTeam:     game.TeamRed,
	}
}

func planOf(seat game.Seat, words ...string) *agent.Decision {
	d := &agent.Decision{Seat: seat, Reasoning: game.ReasoningEntry{Role: agent.RoleLabel(seat), Action: fmt.Sprintf("Guess Plan: %q", words)}}
	for _, w := range words {
		d.Actions = append(d.Actions, game.GuessAction(w))
	}
	return d
}

func intp(n int) *int { return &n }

func TestCreateAndSubmit(t *testing.T) {
	svc, store, pub := newService(t, nil, nil)
	ctx := context.Background()

	state, err := svc.CreateGame(ctx, api.CreateOptions{})
	require.NoError(t, err)
	assert.Len(t, state.GameID, 8)
	assert.Len(t, state.Board, 25)
	assert.Equal(t, game.PhaseRedSpymaster, state.Phase)

	out, err := svc.Submit(ctx, state.GameID, "", game.ClueAction("QXJZV", 2), intp(0))
	require.NoError(t, err)
	assert.Equal(t, api.StatusSuccess, out.Status)
	assert.Equal(t, 1, out.State.TurnCount)
	assert.Equal(t, game.PhaseRedGuesser, out.State.Phase)
	assert.Equal(t, 3, out.State.RemainingGuesses)

	updates := pub.all()
	require.Len(t, updates, 2)
	assert.Equal(t, api.UpdateTypeState, updates[1].Type)
	assert.Equal(t, []string{"RED Spymaster gives clue: QXJZV 2"}, updates[1].Lines)
	assert.Equal(t, 2, store.saves)
	assert.Equal(t, 1, store.records[state.GameID].TurnCount)

	list := svc.List()
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].TurnCount)
}

func TestStaleSubmitIsIgnored(t *testing.T) {
	svc, _, pub := newService(t, nil, nil)
	ctx := context.Background()
	state, err := svc.CreateGame(ctx, api.CreateOptions{})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, state.GameID, game.SeatRedSpymaster, game.ClueAction("QXJZV", 1), nil)
	require.NoError(t, err)

	out, err := svc.Submit(ctx, state.GameID, "", game.EndTurnAction(), intp(0))
	require.NoError(t, err)
	assert.Equal(t, api.StatusIgnored, out.Status)
	assert.Equal(t, "Stale request. Expected turn 0, current is 1", out.Reason)

	current, err := svc.State(state.GameID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.TurnCount)
	assert.Len(t, pub.all(), 2)
}

func TestSubmitRejections(t *testing.T) {
	svc, _, _ := newService(t, nil, nil)
	ctx := context.Background()
	state, err := svc.CreateGame(ctx, api.CreateOptions{})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, state.GameID, "", game.GuessAction(state.Board[0].Word), nil)
	r, ok := game.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, game.RejectIllegalPhase, r.Code)

	_, err = svc.Submit(ctx, state.GameID, game.SeatBlueSpymaster, game.ClueAction("QXJZV", 1), nil)
	r, ok = game.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, game.RejectIllegalPhase, r.Code)

	current, _ := svc.State(state.GameID)
	assert.Equal(t, 0, current.TurnCount)

	_, err = svc.Submit(ctx, "missing", "", game.EndTurnAction(), nil)
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestSaveFailureLeavesStateUntouched(t *testing.T) {
	svc, store, pub := newService(t, nil, nil)
	ctx := context.Background()
	state, err := svc.CreateGame(ctx, api.CreateOptions{})
	require.NoError(t, err)

	boom := errors.New("disk full")
	store.fail = boom
	_, err = svc.Submit(ctx, state.GameID, "", game.ClueAction("QXJZV", 1), nil)
	assert.ErrorIs(t, err, boom)

	current, _ := svc.State(state.GameID)
	assert.Equal(t, 0, current.TurnCount)
	assert.Equal(t, game.PhaseRedSpymaster, current.Phase)
	assert.Len(t, pub.all(), 1)
}

func TestSetSeatKeepsTurnCount(t *testing.T) {
	svc, _, _ := newService(t, nil, nil)
	ctx := context.Background()
	state, err := svc.CreateGame(ctx, api.CreateOptions{})
	require.NoError(t, err)

	next, err := svc.SetSeat(ctx, state.GameID, game.SeatBlueGuesser, game.ControllerAgent)
	require.NoError(t, err)
	assert.Equal(t, game.ControllerAgent, next.Players[game.SeatBlueGuesser])
	assert.Equal(t, 0, next.TurnCount)

	_, err = svc.SetSeat(ctx, state.GameID, game.Seat("COACH"), game.ControllerAgent)
	assert.Error(t, err)
}

func TestGuessPlanStopsWhenTurnEnds(t *testing.T) {
	gw := gatewayFunc(func(ctx context.Context, req agent.MoveRequest) (*agent.Decision, error) {
		return planOf(req.View.Seat, "FOG", "APPLE"), nil
	})
	svc, _, _ := newService(t, gw, nil)
	svc.Adopt(guessingState("g1"))

	out, err := svc.TriggerAgent(context.Background(), "g1", intp(1))
	require.NoError(t, err)
	assert.Equal(t, api.StatusSuccess, out.Status)
	assert.Equal(t, 1, out.Updates)
	assert.Equal(t, game.PhaseBlueSpymaster, out.State.Phase)
	assert.Equal(t, 2, out.State.TurnCount)

	idx, _ := out.State.FindTile("APPLE")
	assert.False(t, out.State.Board[idx].Revealed, "guess after the turn ended must not be applied")
	require.Len(t, out.State.ReasoningLog, 1)
	assert.Equal(t, "RED GUESSER", out.State.ReasoningLog[0].Role)
}

func TestGuessPlanIsClosedWithEndTurn(t *testing.T) {
	gw := gatewayFunc(func(ctx context.Context, req agent.MoveRequest) (*agent.Decision, error) {
		return planOf(req.View.Seat, "APPLE"), nil
	})
	svc, _, _ := newService(t, gw, nil)
	svc.Adopt(guessingState("g1"))

	out, err := svc.TriggerAgent(context.Background(), "g1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Updates)
	assert.Equal(t, game.PhaseBlueSpymaster, out.State.Phase)
	assert.Equal(t, 3, out.State.TurnCount)
	assert.Equal(t, "RED ends turn manually.", out.State.Log[len(out.State.Log)-1])
}

func TestAgentResultDiscardedWhenGameAdvanced(t *testing.T) {
	var svc *Service
	gw := gatewayFunc(func(ctx context.Context, req agent.MoveRequest) (*agent.Decision, error) {
		// a human acts while the model is thinking
		_, err := svc.Submit(ctx, "g1", "", game.EndTurnAction(), nil)
		require.NoError(t, err)
		return planOf(req.View.Seat, "APPLE"), nil
	})
	svc, _, _ = newService(t, gw, nil)
	svc.Adopt(guessingState("g1"))

	out, err := svc.TriggerAgent(context.Background(), "g1", intp(1))
	require.NoError(t, err)
	assert.Equal(t, api.StatusIgnored, out.Status)
	assert.Equal(t, "State changed during processing", out.Reason)
	assert.Equal(t, 2, out.State.TurnCount)
	assert.Empty(t, out.State.ReasoningLog)
}

func TestRejectedAgentMoveKeepsReasoning(t *testing.T) {
	gw := gatewayFunc(func(ctx context.Context, req agent.MoveRequest) (*agent.Decision, error) {
		d := planOf(req.View.Seat, "NOT_ON_BOARD")
		d.Reasoning.Reasoning = "thought it was fruit"
		return d, nil
	})
	svc, store, pub := newService(t, gw, nil)
	svc.Adopt(guessingState("g1"))

	_, err := svc.TriggerAgent(context.Background(), "g1", intp(1))
	var rej *game.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, game.RejectUnknownTile, rej.Code)

	state, err := svc.State("g1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.TurnCount)
	assert.Equal(t, game.PhaseRedGuesser, state.Phase)
	require.Len(t, state.ReasoningLog, 1)
	assert.Equal(t, "thought it was fruit", state.ReasoningLog[0].Reasoning)

	rec, err := store.Load(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, rec.ReasoningLog, 1)
	assert.Equal(t, 1, rec.TurnCount)

	updates := pub.all()
	require.Len(t, updates, 1)
	assert.Empty(t, updates[0].Lines)
}

func TestNoAutoPlayAfterClose(t *testing.T) {
	var calls atomic.Int32
	gw := gatewayFunc(func(ctx context.Context, req agent.MoveRequest) (*agent.Decision, error) {
		calls.Add(1)
		return nil, ctx.Err()
	})
	svc, _, _ := newService(t, gw, func(s *config.SystemConfig) {
		s.AutoPlayAgents = true
	})
	svc.Close()

	_, err := svc.CreateGame(context.Background(), api.CreateOptions{Players: allAgents()})
	require.NoError(t, err)
	svc.wg.Wait()
	assert.Zero(t, calls.Load())
}

func TestObserveHoldsMovesBack(t *testing.T) {
	svc, _, pub := newService(t, nil, nil)
	svc.Adopt(guessingState("g1"))

	done := make(chan struct{})
	var observed int
	err := svc.Observe("g1", func(state *game.State) {
		observed = state.TurnCount
		go func() {
			defer close(done)
			_, err := svc.Submit(context.Background(), "g1", "", game.EndTurnAction(), nil)
			assert.NoError(t, err)
		}()
		// the move cannot be accepted while the snapshot is being handled
		time.Sleep(50 * time.Millisecond)
		assert.Empty(t, pub.all())
	})
	require.NoError(t, err)
	<-done

	updates := pub.all()
	require.Len(t, updates, 1)
	assert.Equal(t, 1, observed)
	assert.Equal(t, 2, updates[0].State.TurnCount)

	assert.ErrorIs(t, svc.Observe("missing", func(*game.State) {}), ErrGameNotFound)
}

func TestTriggerAgentStaleAndOver(t *testing.T) {
	called := false
	gw := gatewayFunc(func(ctx context.Context, req agent.MoveRequest) (*agent.Decision, error) {
		called = true
		return planOf(req.View.Seat, "GHOST"), nil
	})
	svc, _, _ := newService(t, gw, nil)
	svc.Adopt(guessingState("g1"))

	out, err := svc.TriggerAgent(context.Background(), "g1", intp(0))
	require.NoError(t, err)
	assert.Equal(t, api.StatusIgnored, out.Status)
	assert.False(t, called, "stale requests never reach the model")

	out, err = svc.TriggerAgent(context.Background(), "g1", intp(1))
	require.NoError(t, err)
	assert.Equal(t, game.TeamBlue, out.State.Winner)

	_, err = svc.TriggerAgent(context.Background(), "g1", nil)
	r, ok := game.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, game.RejectGameOver, r.Code)
}

func TestProtocolErrorDisablesAutoplay(t *testing.T) {
	gw := gatewayFunc(func(ctx context.Context, req agent.MoveRequest) (*agent.Decision, error) {
		return nil, &agent.ProtocolError{Seat: req.View.Seat, Attempts: 3, Reason: "no valid move"}
	})
	svc, _, _ := newService(t, gw, nil)
	svc.Adopt(guessingState("g1"))

	before, _ := svc.State("g1")
	_, err := svc.TriggerAgent(context.Background(), "g1", nil)
	var perr *agent.ProtocolError
	require.ErrorAs(t, err, &perr)

	after, _ := svc.State("g1")
	assert.Equal(t, before, after)

	h, err := svc.get("g1")
	require.NoError(t, err)
	h.mu.Lock()
	assert.True(t, h.autoPlayOff)
	h.mu.Unlock()
}

// oracleClient plays a legal game by peeking at the live state: spymasters
// give a nonsense clue for one word and guessers pick one of their own
// words.
type oracleClient struct {
	svc   *Service
	id    string
	mu    sync.Mutex
	calls int
}

var teamRe = regexp.MustCompile(`for Team (RED|BLUE)`)

func (c *oracleClient) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	system := messages[0].GetTextContent()
	team := game.Team(teamRe.FindStringSubmatch(system)[1])

	var reply string
	if strings.Contains(system, "Spymaster for Team") {
		reply = `{"reasoning":"one at a time","word":"QXJZV","number":1}`
	} else {
		state, err := c.svc.State(c.id)
		if err != nil {
			return nil, err
		}
		for _, tile := range state.Board {
			if tile.Team == team && !tile.Revealed {
				reply = fmt.Sprintf("```json\n{\"reasoning\":\"sure\",\"words\":[%q]}\n```", tile.Word)
				break
			}
		}
	}

	ch := make(chan llm.StreamChunk, 2)
	ch <- llm.NewTextChunk(reply)
	ch <- llm.NewFinalChunk(llm.StopReasonStop, nil)
	close(ch)
	return ch, nil
}

func (c *oracleClient) IsTransientError(error) bool { return false }
func (c *oracleClient) Provider() string { return "oracle" }
func (c *oracleClient) Model() string { return "oracle" }

type oneClient struct{ c llm.LLMClient }

func (o oneClient) Get(string) llm.LLMClient { return o.c }

func allAgents() map[game.Seat]game.Controller {
	players := make(map[game.Seat]game.Controller)
	for _, seat := range game.AllSeats {
		players[seat] = game.ControllerAgent
	}
	return players
}

func TestAllAgentGameRunsToCompletion(t *testing.T) {
	client := &oracleClient{}
	live := config.NewLive(config.DefaultSystemConfig())
	svc, store, _ := newService(t, agent.NewLLMGateway(oneClient{client}, live), nil)
	client.svc = svc

	state, err := svc.CreateGame(context.Background(), api.CreateOptions{Players: allAgents(), AutoPlay: new(bool)})
	require.NoError(t, err)
	client.id = state.GameID

	final, err := svc.RunToCompletion(context.Background(), state.GameID, 200)
	require.NoError(t, err)

	assert.Equal(t, game.PhaseGameOver, final.Phase)
	assert.NotEmpty(t, final.Winner)
	assert.Equal(t, client.calls, len(final.ReasoningLog), "one reasoning entry per decision")
	assert.Equal(t, "Team "+string(final.Winner)+" wins!", final.Log[len(final.Log)-1])

	rec := store.records[state.GameID]
	require.NotNil(t, rec)
	assert.Equal(t, final.TurnCount, rec.TurnCount)
	board := history.Reconstruct(rec.Cards, rec.Log, len(rec.Log))
	assert.Equal(t, final.Board, board, "replaying the stored log rebuilds the final board")
}

func TestRunToCompletionNeedsAgents(t *testing.T) {
	svc, _, _ := newService(t, nil, nil)
	state, err := svc.CreateGame(context.Background(), api.CreateOptions{})
	require.NoError(t, err)

	_, err = svc.RunToCompletion(context.Background(), state.GameID, 10)
	assert.ErrorContains(t, err, "not agent controlled")
}

func TestAutoPlayFinishesGame(t *testing.T) {
	client := &oracleClient{}
	live := config.NewLive(config.DefaultSystemConfig())
	svc, _, _ := newService(t, agent.NewLLMGateway(oneClient{client}, live), func(s *config.SystemConfig) {
		s.AutoPlayAgents = true
	})
	client.svc = svc

	// the client needs the id before the first autoplay turn reads state
	client.mu.Lock()
	state, err := svc.CreateGame(context.Background(), api.CreateOptions{Players: allAgents()})
	require.NoError(t, err)
	client.id = state.GameID
	client.mu.Unlock()

	require.Eventually(t, func() bool {
		s, err := svc.State(state.GameID)
		return err == nil && s.IsOver()
	}, 5*time.Second, 10*time.Millisecond)
}
