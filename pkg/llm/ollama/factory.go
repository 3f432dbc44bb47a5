package ollama

import (
	"log/slog"

	"codenames/pkg/config"
	"codenames/pkg/llm"
)

// OllamaFactory handles creation of Ollama Clients
type OllamaFactory struct{}

// Create builds one client per model. An empty base_url falls back to the
// system ollama_default_url.
func (f *OllamaFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sys.OllamaDefaultURL
	}

	var clients []llm.LLMClient
	for _, model := range cfg.Models {
		client, err := NewOllamaClient(model, baseURL, cfg.JSONMode(), cfg.Options)
		if err != nil {
			slog.Error("Failed to create Ollama client", "model", model, "error", err)
			continue
		}
		client.SetDebug(sys.DebugChunks)
		clients = append(clients, client)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("ollama", &OllamaFactory{})
}
