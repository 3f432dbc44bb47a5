package gateway

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"codenames/pkg/api"
	"codenames/pkg/game"
	"codenames/pkg/history"
	"codenames/pkg/monitor"
)

// GatewayManager owns the channels and fans every state update out to them.
// It implements api.ChannelContext and api.Publisher.
type GatewayManager struct {
	channels map[string]api.Channel
	games    api.GameService
	history  history.Store
	monitor  monitor.Monitor
	mu       sync.RWMutex
}

// NewGatewayManager creates an empty GatewayManager.
func NewGatewayManager() *GatewayManager {
	return &GatewayManager{
		channels: make(map[string]api.Channel),
	}
}

// SetMonitor sets the monitor that mirrors game log lines.
func (g *GatewayManager) SetMonitor(m monitor.Monitor) {
	g.monitor = m
}

func (g *GatewayManager) SetGames(games api.GameService) {
	g.games = games
}

func (g *GatewayManager) SetHistory(store history.Store) {
	g.history = store
}

func (g *GatewayManager) Games() api.GameService {
	return g.games
}

func (g *GatewayManager) History() history.Store {
	return g.history
}

// Register adds a channel, replacing any with the same ID.
func (g *GatewayManager) Register(c api.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[c.ID()] = c
}

// GetChannel looks up a channel by ID.
func (g *GatewayManager) GetChannel(id string) (api.Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.channels[id]
	return c, ok
}

func (g *GatewayManager) snapshot() []api.Channel {
	g.mu.RLock()
	defer g.mu.RUnlock()
	list := make([]api.Channel, 0, len(g.channels))
	for _, c := range g.channels {
		list = append(list, c)
	}
	return list
}

// StartAll starts every registered channel.
func (g *GatewayManager) StartAll() error {
	for _, c := range g.snapshot() {
		slog.Info("Starting channel", "channel", c.ID())
		if err := c.Start(g); err != nil {
			return fmt.Errorf("failed to start channel %s: %w", c.ID(), err)
		}
	}
	return nil
}

// StopAll stops every channel, logging failures.
func (g *GatewayManager) StopAll() {
	for _, c := range g.snapshot() {
		slog.Info("Stopping channel", "channel", c.ID())
		if err := c.Stop(); err != nil {
			slog.Error("Error stopping channel", "channel", c.ID(), "error", err)
		}
	}
	if g.monitor != nil {
		if err := g.monitor.Stop(); err != nil {
			slog.Error("Error stopping monitor", "error", err)
		}
	}
}

// Publish implements api.Publisher. It is called with the game lock held, so
// a misbehaving channel is isolated instead of being allowed to stall or
// crash the move.
func (g *GatewayManager) Publish(update api.StateUpdate) {
	if g.monitor != nil {
		for _, line := range update.Lines {
			g.monitor.OnMessage(lineMessage(update.GameID, line))
		}
	}

	for _, c := range g.snapshot() {
		g.deliver(c, update)
	}
}

func (g *GatewayManager) deliver(c api.Channel, update api.StateUpdate) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Channel panicked while publishing", "channel", c.ID(), "game", update.GameID, "panic", r)
		}
	}()
	c.Publish(update)
}

// lineMessage classifies a log line for the monitor.
func lineMessage(gameID, line string) monitor.MonitorMessage {
	msg := monitor.MonitorMessage{
		Timestamp:   time.Now(),
		MessageType: monitor.TypeInfo,
		GameID:      gameID,
		Content:     line,
	}
	if team, _, ok := game.ParseClueLine(line); ok {
		msg.MessageType = monitor.TypeClue
		msg.Team = string(team)
	} else if team, _, ok := game.ParseGuessLine(line); ok {
		msg.MessageType = monitor.TypeGuess
		msg.Team = string(team)
	} else if strings.HasPrefix(line, "Team ") && strings.HasSuffix(line, " wins!") {
		msg.MessageType = monitor.TypeWin
		msg.Team = strings.TrimSuffix(strings.TrimPrefix(line, "Team "), " wins!")
	} else if team, _, ok := strings.Cut(line, " "); ok && game.Team(team).IsPlaying() {
		msg.Team = team
	}
	return msg
}
