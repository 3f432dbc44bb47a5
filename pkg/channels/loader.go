package channels

import (
	"log/slog"
	"sort"

	"codenames/pkg/api"
	"codenames/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// LoadFromConfig resolves a factory for every entry of the "channels"
// config map and builds the channels. Unknown or failing entries are logged
// and skipped. The "web" channel is always built since it serves the API.
func LoadFromConfig(app *config.Config, system *config.SystemConfig) []api.Channel {
	configs := make(map[string]jsoniter.RawMessage, len(app.Channels)+1)
	for name, raw := range app.Channels {
		configs[name] = raw
	}
	if _, ok := configs["web"]; !ok {
		configs["web"] = jsoniter.RawMessage("{}")
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	var list []api.Channel
	for _, name := range names {
		factory, ok := GetChannelFactory(name)
		if !ok {
			slog.Warn("Unknown channel type", "name", name)
			continue
		}

		channel, err := factory.Create(configs[name], app, system)
		if err != nil {
			slog.Error("Failed to create channel", "name", name, "error", err)
			continue
		}

		// If Create returns nil (e.g., disabled in config), skip
		if channel == nil {
			continue
		}

		list = append(list, channel)
		slog.Info("Channel loaded", "name", name)
	}
	return list
}
