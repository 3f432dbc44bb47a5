package api

import (
	"codenames/pkg/history"
)

// Channel defines the standardized lifecycle interface for the surfaces
// that expose games (HTTP/WebSocket, spectator feeds).
type Channel interface {
	ID() string
	Start(ctx ChannelContext) error
	Stop() error
	// Publish delivers a state update. It must not block; a slow consumer
	// drops updates instead of stalling the game.
	Publish(update StateUpdate)
}

// ChannelContext provides the interface for a Channel implementation to
// reach the game core.
type ChannelContext interface {
	Games() GameService
	History() history.Store
}

// Publisher receives every accepted state change, in acceptance order per
// game.
type Publisher interface {
	Publish(update StateUpdate)
}

// PublisherAware defines an interface for components that require a
// Publisher to be injected.
type PublisherAware interface {
	SetPublisher(p Publisher)
}
