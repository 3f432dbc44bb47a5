package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codenames/pkg/config"
	"codenames/pkg/game"
	"codenames/pkg/llm"

	"github.com/google/uuid"
)

// MoveRequest asks the agent in View.Seat for its next move.
type MoveRequest struct {
	View  *game.View
	Model string
}

// Decision is a validated move. A spymaster decision holds one CLUE action;
// a guesser decision holds the planned guesses in order, ending with an
// END_TURN action when the model asked to stop.
type Decision struct {
	Seat      game.Seat
	Actions   []game.Action
	Reasoning game.ReasoningEntry
	Attempts  int
}

// Gateway turns a seat's view into a legal-looking move.
type Gateway interface {
	RequestMove(ctx context.Context, req MoveRequest) (*Decision, error)
}

// ClientSource resolves a model identifier to a client.
type ClientSource interface {
	Get(model string) llm.LLMClient
}

// LLMGateway asks an LLM for moves, validating every reply and feeding the
// rejection reason back on the next attempt.
type LLMGateway struct {
	clients ClientSource
	live    *config.Live
	now     func() time.Time
}

func NewLLMGateway(clients ClientSource, live *config.Live) *LLMGateway {
	return &LLMGateway{clients: clients, live: live, now: time.Now}
}

func (g *LLMGateway) RequestMove(ctx context.Context, req MoveRequest) (*Decision, error) {
	v := req.View
	if v == nil || !v.Seat.Valid() {
		return nil, fmt.Errorf("move request without a seat view")
	}
	if v.Role == game.RoleGuesser && v.LastClue == nil {
		// nothing to guess on
		return g.decide(v, []game.Action{game.EndTurnAction()}, "No clue to act on.", "End Turn", 0), nil
	}

	sys := g.live.Load()
	client := g.clients.Get(req.Model)
	maxAttempts := max(sys.AgentMaxAttempts, 1)
	timeout := time.Duration(sys.LLMTimeoutMs) * time.Millisecond

	ctx = context.WithValue(ctx, llm.DebugDirContextKey, g.debugID(v))
	messages := buildMessages(v)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		slog.InfoContext(ctx, "Requesting agent move", "game", v.GameID, "seat", v.Seat, "model", client.Model(), "attempt", attempt)

		text, err := g.complete(ctx, client, messages, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.WarnContext(ctx, "Agent call failed", "seat", v.Seat, "attempt", attempt, "error", err)
			lastErr = err
			continue
		}

		decision, err := g.interpret(text, v, attempt)
		if err == nil {
			slog.InfoContext(ctx, "Agent move accepted", "seat", v.Seat, "action", decision.Reasoning.Action, "attempt", attempt)
			return decision, nil
		}

		var invalid *invalidReply
		if !errors.As(err, &invalid) {
			return nil, err
		}
		slog.WarnContext(ctx, "Agent reply rejected", "seat", v.Seat, "attempt", attempt, "reason", invalid.reason)
		lastErr = err
		messages = append(messages,
			llm.NewAssistantMessage(text),
			llm.NewUserMessage(fmt.Sprintf("Your previous answer was rejected: %s. Reply again with the JSON object only.", invalid.reason)),
		)
	}

	return nil, &ProtocolError{
		Seat:     v.Seat,
		Model:    client.Model(),
		Attempts: maxAttempts,
		Reason:   "no valid move",
		Err:      lastErr,
	}
}

// complete runs one bounded LLM call and returns the reply text.
func (g *LLMGateway) complete(ctx context.Context, client llm.LLMClient, messages []llm.Message, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	chunks, err := client.StreamChat(ctx, messages)
	if err != nil {
		return "", err
	}
	reply, err := llm.Collect(ctx, chunks)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("provider timed out after %s: %w", timeout, err)
		}
		return "", err
	}
	if strings.TrimSpace(reply.Text) == "" {
		return "", fmt.Errorf("empty reply (finish reason %q)", reply.FinishReason)
	}
	return reply.Text, nil
}

func (g *LLMGateway) interpret(text string, v *game.View, attempt int) (*Decision, error) {
	if v.Role == game.RoleSpymaster {
		clue, reasoning, err := parseClue(text, v)
		if err != nil {
			return nil, err
		}
		return g.decide(v, []game.Action{game.ClueAction(clue.Word, clue.Number)}, reasoning, "Clue: "+clue.String(), attempt), nil
	}

	words, stopped, reasoning, err := parsePlan(text, v)
	if err != nil {
		return nil, err
	}
	actions := make([]game.Action, 0, len(words)+1)
	for _, w := range words {
		actions = append(actions, game.GuessAction(w))
	}
	if stopped {
		actions = append(actions, game.EndTurnAction())
	}
	if len(words) == 0 {
		return g.decide(v, actions, reasoning, "End Turn", attempt), nil
	}
	return g.decide(v, actions, reasoning, fmt.Sprintf("Guess Plan: %q", words), attempt), nil
}

func (g *LLMGateway) decide(v *game.View, actions []game.Action, reasoning, action string, attempt int) *Decision {
	return &Decision{
		Seat:    v.Seat,
		Actions: actions,
		Reasoning: game.ReasoningEntry{
			Role:      RoleLabel(v.Seat),
			Action:    action,
			Reasoning: reasoning,
			Timestamp: g.now(),
		},
		Attempts: attempt,
	}
}

// debugID names the debug dump directory of one move request. It sorts by
// time and names the game and seat.
func (g *LLMGateway) debugID(v *game.View) string {
	return fmt.Sprintf("%s_%s_%s_%s", g.now().Format("20060102-150405"), v.GameID, strings.ToLower(string(v.Seat)), uuid.NewString()[:8])
}

// RoleLabel renders a seat the way reasoning entries name it, e.g.
// "RED SPYMASTER".
func RoleLabel(seat game.Seat) string {
	return strings.ReplaceAll(string(seat), "_", " ")
}
