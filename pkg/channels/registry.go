package channels

import (
	"codenames/pkg/api"
	"codenames/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// ChannelFactory defines the abstract interface for surface-specific
// channel creators. This allows the system to support new surfaces
// without modifying the core gateway logic.
type ChannelFactory interface {
	// Create instantiates a concrete Channel implementation using the
	// provided configuration and shared system resources.
	Create(rawConfig jsoniter.RawMessage, app *config.Config, system *config.SystemConfig) (api.Channel, error)
}

// channelRegistry is an internal global map stores the mapping between
// channel names (e.g., "telegram") and their factory implementations.
var channelRegistry = make(map[string]ChannelFactory)

// RegisterChannel adds a new ChannelFactory to the global internal registry.
// This is typically called during the package's init() phase.
func RegisterChannel(name string, factory ChannelFactory) {
	channelRegistry[name] = factory
}

// GetChannelFactory retrieves a registered ChannelFactory by name.
func GetChannelFactory(name string) (ChannelFactory, bool) {
	f, ok := channelRegistry[name]
	return f, ok
}
