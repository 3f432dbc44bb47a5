package openailm

import (
	"fmt"

	"codenames/pkg/config"
	"codenames/pkg/llm"
)

// OpenAIFactory handles creation of OpenAI Clients
type OpenAIFactory struct {
	provider string
}

// Create builds one client per model and API key, models first.
func (f *OpenAIFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	keys := cfg.APIKeys
	if len(keys) == 0 {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%s: no api_keys configured", f.provider)
		}
		// local OpenAI compatible servers usually ignore the key
		keys = []string{"unused"}
	}

	var clients []llm.LLMClient
	for _, model := range cfg.Models {
		for _, key := range keys {
			client := NewClient(f.provider, key, model, cfg.BaseURL, cfg.JSONMode(), cfg.Options)
			client.SetDebug(sys.DebugChunks)
			clients = append(clients, client)
		}
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("openai", &OpenAIFactory{provider: "openai"})
	// OpenAI compatible gateways (Anthropic, OpenRouter, vLLM) configured by base_url
	llm.RegisterProvider("openai_compatible", &OpenAIFactory{provider: "openai_compatible"})
}
