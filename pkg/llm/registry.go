package llm

import (
	"codenames/pkg/config"
)

// ProviderGroupConfig describes one provider entry of the "llm" config array.
type ProviderGroupConfig struct {
	Type    string         `json:"type"`
	APIKeys []string       `json:"api_keys,omitempty"`
	Models  []string       `json:"models"`
	BaseURL string         `json:"base_url,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// JSONMode reports whether the group asks for JSON-only output. It defaults
// to true since every agent reply is a JSON object.
func (c ProviderGroupConfig) JSONMode() bool {
	if v, ok := c.Options["json_mode"].(bool); ok {
		return v
	}
	return true
}

// ProviderFactory builds the atomic clients of one provider group.
type ProviderFactory interface {
	Create(groupConfig ProviderGroupConfig, systemConfig *config.SystemConfig) ([]LLMClient, error)
}

var providerRegistry = make(map[string]ProviderFactory)

// RegisterProvider is called from provider packages' init.
func RegisterProvider(name string, factory ProviderFactory) {
	providerRegistry[name] = factory
}

func GetProviderFactory(name string) (ProviderFactory, bool) {
	f, ok := providerRegistry[name]
	return f, ok
}
