package gateway

import (
	"fmt"

	"codenames/pkg/api"
	"codenames/pkg/history"
	"codenames/pkg/monitor"
)

// GatewayBuilder provides a fluent builder pattern interface for constructing
// and initializing a GatewayManager with all its necessary dependencies.
//
// All components (channels, game service, history) are pre-built and
// injected as instances; the Builder simply assembles and starts them.
type GatewayBuilder struct {
	gw       *GatewayManager // The GatewayManager instance being constructed
	monitor  monitor.Monitor // Monitoring implementation to be injected
	channels []api.Channel   // Pre-built channel instances to register
	games    api.GameService // Game core exposed to channels
	history  history.Store   // Record store exposed to channels
}

// NewGatewayBuilder creates a fresh GatewayBuilder instance and allocates
// an internal GatewayManager to be configured.
func NewGatewayBuilder() *GatewayBuilder {
	return &GatewayBuilder{
		gw: NewGatewayManager(),
	}
}

// WithMonitor injects a monitoring implementation into the builder.
// This monitor will be started automatically during the Build() process.
func (b *GatewayBuilder) WithMonitor(m monitor.Monitor) *GatewayBuilder {
	b.monitor = m
	return b
}

// WithChannel adds pre-built channel instances to the gateway.
func (b *GatewayBuilder) WithChannel(channels ...api.Channel) *GatewayBuilder {
	b.channels = append(b.channels, channels...)
	return b
}

// WithGames injects the game service. If it implements api.PublisherAware it
// will publish its updates through the gateway.
func (b *GatewayBuilder) WithGames(games api.GameService) *GatewayBuilder {
	b.games = games
	return b
}

func (b *GatewayBuilder) WithHistory(store history.Store) *GatewayBuilder {
	b.history = store
	return b
}

// Build finalizes the configuration, injects all dependencies into the
// GatewayManager, registers all channels, and starts everything.
// Returns the fully operational GatewayManager or an error if any stage fails.
func (b *GatewayBuilder) Build() (*GatewayManager, error) {
	if b.games == nil {
		return nil, fmt.Errorf("gateway needs a game service")
	}

	// 1. Initialize and start the monitoring service
	if b.monitor != nil {
		b.gw.SetMonitor(b.monitor)
		if err := b.monitor.Start(); err != nil {
			return nil, fmt.Errorf("failed to start monitor: %w", err)
		}
	}

	// 2. Wire the game core both ways
	b.gw.SetGames(b.games)
	b.gw.SetHistory(b.history)
	if aware, ok := b.games.(api.PublisherAware); ok {
		aware.SetPublisher(b.gw)
	}

	// 3. Register all pre-built channels
	for _, c := range b.channels {
		b.gw.Register(c)
	}

	// 4. Start all registered channels
	if err := b.gw.StartAll(); err != nil {
		return nil, fmt.Errorf("failed to start channels: %w", err)
	}

	return b.gw, nil
}
