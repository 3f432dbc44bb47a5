package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"codenames/pkg/agent"
	"codenames/pkg/api"
	"codenames/pkg/config"
	"codenames/pkg/game"
	"codenames/pkg/history"

	"github.com/google/uuid"
)

// ErrGameNotFound is returned for an unknown game id.
var ErrGameNotFound = api.ErrGameNotFound

// handle owns one game. mu serializes every mutation of state.
type handle struct {
	mu    sync.Mutex
	state *game.State

	// autoPlay is the per-game override; nil follows the system setting.
	autoPlay *bool
	// autoPlayOff is set after an agent protocol failure.
	autoPlayOff bool
	// scheduled guards against stacking autoplay goroutines.
	scheduled bool
}

// Service is the turn orchestrator: the single writer of every game it
// holds. It implements api.GameService.
type Service struct {
	mu    sync.RWMutex
	games map[string]*handle

	agents     agent.Gateway
	store      history.Store
	publisher  api.Publisher
	live       *config.Live
	vocabulary []string
	model      string
	rng        *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// closed is guarded by mu; no autoplay goroutine starts once it is set.
	closed bool
}

// Options wires a Service.
type Options struct {
	Agents       agent.Gateway
	Store        history.Store
	Live         *config.Live
	Vocabulary   []string
	DefaultModel string
	// Rand seeds board generation; nil uses the global source.
	Rand *rand.Rand
}

func New(opts Options) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	live := opts.Live
	if live == nil {
		live = config.NewLive(nil)
	}
	return &Service{
		games:      make(map[string]*handle),
		agents:     opts.Agents,
		store:      opts.Store,
		live:       live,
		vocabulary: opts.Vocabulary,
		model:      opts.DefaultModel,
		rng:        opts.Rand,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetPublisher implements api.PublisherAware.
func (s *Service) SetPublisher(p api.Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

// Close stops autoplay and waits for running agent turns.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) get(id string) (*handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return h, nil
}

func (s *Service) CreateGame(ctx context.Context, opts api.CreateOptions) (*game.State, error) {
	model := opts.LLMModel
	if model == "" {
		model = s.model
	}

	state, err := game.NewGame(game.Options{
		GameID:       uuid.NewString()[:8],
		BoardSize:    opts.BoardSize,
		Vocabulary:   s.vocabulary,
		StartingTeam: opts.StartingTeam,
		Players:      opts.Players,
		Difficulty:   opts.Difficulty,
		LLMModel:     model,
		Rand:         s.rng,
	})
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, state); err != nil {
		return nil, err
	}

	h := &handle{state: state, autoPlay: opts.AutoPlay}
	s.mu.Lock()
	s.games[state.GameID] = h
	s.mu.Unlock()

	slog.InfoContext(ctx, "Game created", "game", state.GameID, "size", state.BoardSize, "starting", state.StartingTeam, "model", model)

	h.mu.Lock()
	defer h.mu.Unlock()
	s.publish(h, state.Log)
	s.maybeAutoPlay(h)
	return state.Clone(), nil
}

// Adopt registers an existing state, e.g. one rebuilt for a headless run.
func (s *Service) Adopt(state *game.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[state.GameID] = &handle{state: state.Clone()}
}

func (s *Service) State(id string) (*game.State, error) {
	h, err := s.get(id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Clone(), nil
}

func (s *Service) Observe(id string, fn func(state *game.State)) error {
	h, err := s.get(id)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.state.Clone())
	return nil
}

func (s *Service) List() []api.GameInfo {
	s.mu.RLock()
	handles := make([]*handle, 0, len(s.games))
	for _, h := range s.games {
		handles = append(handles, h)
	}
	s.mu.RUnlock()

	infos := make([]api.GameInfo, 0, len(handles))
	for _, h := range handles {
		h.mu.Lock()
		infos = append(infos, api.GameInfo{
			GameID:    h.state.GameID,
			Phase:     h.state.Phase,
			TurnCount: h.state.TurnCount,
			Winner:    h.state.Winner,
			Score:     h.state.Score,
		})
		h.mu.Unlock()
	}
	slices.SortFunc(infos, func(a, b api.GameInfo) int {
		switch {
		case a.GameID < b.GameID:
			return -1
		case a.GameID > b.GameID:
			return 1
		}
		return 0
	})
	return infos
}

func stale(expected *int, current int) (*api.Outcome, bool) {
	if expected == nil || *expected == current {
		return nil, false
	}
	return &api.Outcome{
		Status: api.StatusIgnored,
		Reason: fmt.Sprintf("Stale request. Expected turn %d, current is %d", *expected, current),
	}, true
}

func (s *Service) Submit(ctx context.Context, id string, seat game.Seat, action game.Action, expectedTurn *int) (*api.Outcome, error) {
	h, err := s.get(id)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if out, ok := stale(expectedTurn, h.state.TurnCount); ok {
		slog.InfoContext(ctx, "Ignoring stale move", "game", id, "reason", out.Reason)
		out.State = h.state.Clone()
		out.AgentTurnDue = h.state.AgentDue()
		return out, nil
	}

	if seat == "" {
		seat, _ = h.state.Phase.Seat()
	}
	next, err := game.Apply(h.state, seat, action)
	if err != nil {
		slog.InfoContext(ctx, "Move rejected", "game", id, "seat", seat, "action", action.String(), "error", err)
		return nil, err
	}

	if err := s.commit(ctx, h, next); err != nil {
		return nil, err
	}
	return &api.Outcome{
		Status:       api.StatusSuccess,
		State:        next.Clone(),
		AgentTurnDue: next.AgentDue(),
		Updates:      1,
	}, nil
}

// TriggerAgent asks the agent of the seat to move and applies its decision.
// The lock is released during the model round trip; if the game advanced in
// the meantime the decision is discarded.
func (s *Service) TriggerAgent(ctx context.Context, id string, expectedTurn *int) (*api.Outcome, error) {
	if s.agents == nil {
		return nil, errors.New("no agent gateway configured")
	}
	h, err := s.get(id)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if out, ok := stale(expectedTurn, h.state.TurnCount); ok {
		out.State = h.state.Clone()
		out.AgentTurnDue = h.state.AgentDue()
		h.mu.Unlock()
		return out, nil
	}
	if h.state.IsOver() {
		h.mu.Unlock()
		return nil, &game.Rejection{Code: game.RejectGameOver, Reason: "game is over"}
	}
	seat, _ := h.state.Phase.Seat()
	view := game.ViewFor(h.state, seat)
	observed := h.state.TurnCount
	model := h.state.LLMModel
	h.mu.Unlock()

	decision, err := s.agents.RequestMove(ctx, agent.MoveRequest{View: view, Model: model})
	if err != nil {
		var perr *agent.ProtocolError
		if errors.As(err, &perr) {
			h.mu.Lock()
			h.autoPlayOff = true
			h.mu.Unlock()
			slog.ErrorContext(ctx, "Agent failed, autoplay disabled for game", "game", id, "seat", seat, "error", err)
		}
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state.TurnCount != observed {
		slog.InfoContext(ctx, "Discarding agent move, game advanced", "game", id, "seat", seat, "observed", observed, "current", h.state.TurnCount)
		return &api.Outcome{
			Status:       api.StatusIgnored,
			Reason:       "State changed during processing",
			State:        h.state.Clone(),
			AgentTurnDue: h.state.AgentDue(),
		}, nil
	}

	next, applied, err := applyPlan(h.state, seat, decision)
	if err != nil {
		if next != nil {
			s.keepReasoning(ctx, h, next)
		}
		return nil, err
	}
	if err := s.commit(ctx, h, next); err != nil {
		return nil, err
	}
	return &api.Outcome{
		Status:       api.StatusSuccess,
		State:        next.Clone(),
		AgentTurnDue: next.AgentDue(),
		Move:         decision,
		Updates:      applied,
	}, nil
}

// applyPlan applies a decision's actions one at a time. A guess plan stops as
// soon as the phase changes; a plan that leaves the guesser still to move is
// closed with END_TURN. When the first action is rejected the returned state
// carries only the reasoning entry.
func applyPlan(state *game.State, seat game.Seat, d *agent.Decision) (*game.State, int, error) {
	cur := state.Clone()
	cur.ReasoningLog = append(cur.ReasoningLog, d.Reasoning)
	phase := cur.Phase

	applied := 0
	for _, action := range d.Actions {
		if cur.Phase != phase {
			break
		}
		next, err := game.Apply(cur, seat, action)
		if err != nil {
			if applied == 0 {
				return cur, 0, err
			}
			slog.Warn("Rest of agent plan rejected", "seat", seat, "action", action.String(), "error", err)
			break
		}
		cur = next
		applied++
	}

	if phase.IsGuesser() && cur.Phase == phase {
		next, err := game.Apply(cur, seat, game.EndTurnAction())
		if err != nil {
			return nil, 0, err
		}
		cur = next
		applied++
	}
	return cur, applied, nil
}

// SetSeat switches a seat between human and agent control. It is not a move
// and leaves turn_count alone.
func (s *Service) SetSeat(ctx context.Context, id string, seat game.Seat, controller game.Controller) (*game.State, error) {
	if !seat.Valid() {
		return nil, &game.Rejection{Code: game.RejectBadAction, Reason: fmt.Sprintf("unknown seat %q", seat)}
	}
	h, err := s.get(id)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.state.Clone()
	if next.Players == nil {
		next.Players = game.DefaultPlayers()
	}
	next.Players[seat] = controller
	if controller == game.ControllerAgent {
		// handing a seat to an agent re-arms autoplay after a failure
		h.autoPlayOff = false
	}
	if err := s.commit(ctx, h, next); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Seat controller changed", "game", id, "seat", seat, "controller", controller)
	return next.Clone(), nil
}

// commit persists next and makes it the current state. Must hold h.mu.
// Nothing changes when the store fails.
func (s *Service) commit(ctx context.Context, h *handle, next *game.State) error {
	if err := s.save(ctx, next); err != nil {
		return err
	}
	added := next.Log[min(len(h.state.Log), len(next.Log)):]
	h.state = next
	s.publish(h, added)
	s.maybeAutoPlay(h)
	return nil
}

// keepReasoning records the reasoning of a rejected agent move. turn_count
// does not change and no autoplay is scheduled. Must hold h.mu.
func (s *Service) keepReasoning(ctx context.Context, h *handle, next *game.State) {
	if err := s.save(ctx, next); err != nil {
		return
	}
	h.state = next
	s.publish(h, nil)
}

func (s *Service) save(ctx context.Context, state *game.State) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, history.NewRecord(state)); err != nil {
		slog.ErrorContext(ctx, "Failed to persist game", "game", state.GameID, "error", err)
		return fmt.Errorf("persist game %s: %w", state.GameID, err)
	}
	return nil
}

// publish must hold h.mu so that updates of one game leave in order.
func (s *Service) publish(h *handle, lines []string) {
	s.mu.RLock()
	p := s.publisher
	s.mu.RUnlock()
	if p == nil {
		return
	}
	p.Publish(api.StateUpdate{
		Type:         api.UpdateTypeState,
		GameID:       h.state.GameID,
		State:        h.state.Clone(),
		AgentTurnDue: h.state.AgentDue(),
		Lines:        append([]string(nil), lines...),
	})
}

// maybeAutoPlay starts the next agent turn in the background when the game
// wants it. Must hold h.mu.
func (s *Service) maybeAutoPlay(h *handle) {
	sys := s.live.Load()
	enabled := sys.AutoPlayAgents
	if h.autoPlay != nil {
		enabled = *h.autoPlay
	}
	if !enabled || h.autoPlayOff || h.scheduled || !h.state.AgentDue() || s.ctx.Err() != nil {
		return
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return
	}
	s.wg.Add(1)
	s.mu.RUnlock()

	h.scheduled = true
	id := h.state.GameID
	turn := h.state.TurnCount
	delay := time.Duration(sys.AutoPlayDelayMs) * time.Millisecond

	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
		case <-time.After(delay):
		}

		h.mu.Lock()
		h.scheduled = false
		if s.ctx.Err() != nil {
			h.mu.Unlock()
			return
		}
		if h.state.TurnCount != turn {
			// the game moved on while we waited; reschedule for the new turn
			s.maybeAutoPlay(h)
			h.mu.Unlock()
			return
		}
		h.mu.Unlock()

		out, err := s.TriggerAgent(s.ctx, id, &turn)
		switch {
		case err != nil:
			slog.Error("Autoplay agent turn failed", "game", id, "turn", turn, "error", err)
		case out.Status == api.StatusIgnored:
			slog.Debug("Autoplay turn skipped", "game", id, "reason", out.Reason)
		}
	}()
}
