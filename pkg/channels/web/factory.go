package web

import (
	"fmt"

	"codenames/pkg/api"
	"codenames/pkg/channels"
	"codenames/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// WebFactory builds the web channel.
type WebFactory struct{}

// Create implements channels.ChannelFactory.
func (f *WebFactory) Create(rawConfig jsoniter.RawMessage, app *config.Config, system *config.SystemConfig) (api.Channel, error) {
	var cfg WebConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse web config: %w", err)
		}
	}

	if cfg.Addr == "" {
		cfg.Addr = app.Server.Addr
	}
	if cfg.AccessToken == "" {
		cfg.AccessToken = app.Server.AccessToken
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = system.InternalChannelBuffer
	}

	return NewWebChannel(cfg), nil
}

func init() {
	channels.RegisterChannel("web", &WebFactory{})
}
