package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"codenames/pkg/config"
	"codenames/pkg/llm"
)

// GeminiFactory handles creation of Gemini Clients
type GeminiFactory struct{}

// Create builds the cartesian product of models and keys, models first.
func (f *GeminiFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("gemini: no api_keys configured")
	}

	useThought := false
	if effort, ok := cfg.Options["thinking_effort"].(string); ok && effort != "" && effort != "off" {
		useThought = true
	}

	var clients []llm.LLMClient
	for _, model := range cfg.Models {
		for _, key := range cfg.APIKeys {
			client, err := NewGeminiClient(context.Background(), key, model, useThought, cfg.JSONMode(), cfg.Options)
			if err != nil {
				slog.Error("Failed to create Gemini client", "model", model, "error", err)
				continue
			}
			client.SetDebug(sys.DebugChunks)
			clients = append(clients, client)
		}
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("gemini", &GeminiFactory{})
}
