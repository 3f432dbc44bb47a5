package telegram

import (
	"fmt"

	"codenames/pkg/api"
	"codenames/pkg/channels"
	"codenames/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TelegramFactory builds the spectator feed.
type TelegramFactory struct{}

// Create implements channels.ChannelFactory. An entry with "enabled": false
// yields no channel.
func (f *TelegramFactory) Create(rawConfig jsoniter.RawMessage, app *config.Config, system *config.SystemConfig) (api.Channel, error) {
	tgCfg := TelegramConfig{Enabled: true}
	if err := json.Unmarshal(rawConfig, &tgCfg); err != nil {
		return nil, fmt.Errorf("failed to parse telegram config: %w", err)
	}
	if !tgCfg.Enabled {
		return nil, nil
	}

	if tgCfg.Token == "" {
		return nil, fmt.Errorf("missing telegram token")
	}
	if tgCfg.ChatID == 0 {
		return nil, fmt.Errorf("missing telegram chat_id")
	}

	ch, err := NewTelegramChannel(tgCfg, system.TelegramMessageLimit, system.InternalChannelBuffer)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func init() {
	channels.RegisterChannel("telegram", &TelegramFactory{})
}
