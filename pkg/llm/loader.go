package llm

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codenames/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// Pool resolves a model identifier to a client. Each model gets a
// FallbackClient over its own API keys; unknown or empty identifiers get the
// default client, which falls back across every configured model.
type Pool struct {
	byModel  map[string]LLMClient
	models   []string
	fallback LLMClient
}

// NewPool groups atomic clients by model.
func NewPool(clients []LLMClient, system *config.SystemConfig) (*Pool, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("no LLM clients could be initialized")
	}

	wrap := func(cs []LLMClient) LLMClient {
		if len(cs) == 1 {
			return cs[0]
		}
		return &FallbackClient{
			Clients:    cs,
			MaxRetries: system.MaxRetries,
			RetryDelay: time.Duration(system.RetryDelayMs) * time.Millisecond,
		}
	}

	grouped := make(map[string][]LLMClient)
	var models []string
	for _, c := range clients {
		key := strings.ToLower(c.Model())
		if _, seen := grouped[key]; !seen {
			models = append(models, c.Model())
		}
		grouped[key] = append(grouped[key], c)
	}

	p := &Pool{
		byModel:  make(map[string]LLMClient, len(grouped)),
		models:   models,
		fallback: wrap(clients),
	}
	for key, cs := range grouped {
		p.byModel[key] = wrap(cs)
	}
	return p, nil
}

// NewPoolFromConfig builds clients for every provider group of the raw "llm"
// config array.
func NewPoolFromConfig(rawLLM jsoniter.RawMessage, system *config.SystemConfig) (*Pool, error) {
	if rawLLM == nil {
		return nil, fmt.Errorf("missing 'llm' config")
	}

	var groups []ProviderGroupConfig
	if err := json.Unmarshal(rawLLM, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse 'llm' config: %w", err)
	}

	var all []LLMClient
	for _, group := range groups {
		slog.Info("Loading LLM group", "type", group.Type, "models", len(group.Models))

		factory, ok := GetProviderFactory(group.Type)
		if !ok {
			slog.Warn("Unknown provider type", "type", group.Type)
			continue
		}

		clients, err := factory.Create(group, system)
		if err != nil {
			slog.Warn("Failed to create clients", "type", group.Type, "error", err)
			continue
		}
		all = append(all, clients...)
	}

	pool, err := NewPool(all, system)
	if err != nil {
		return nil, err
	}
	slog.Info("LLM clients initialized", "atomic", len(all), "models", strings.Join(pool.Models(), ","))
	return pool, nil
}

// Get returns the client for model. The default client is returned for an
// empty or unknown model.
func (p *Pool) Get(model string) LLMClient {
	if c, ok := p.byModel[strings.ToLower(strings.TrimSpace(model))]; ok {
		return c
	}
	if model != "" {
		slog.Warn("Unknown model requested, using default client", "model", model)
	}
	return p.fallback
}

// Has reports whether model is configured.
func (p *Pool) Has(model string) bool {
	_, ok := p.byModel[strings.ToLower(strings.TrimSpace(model))]
	return ok
}

// Models lists configured model identifiers in config order.
func (p *Pool) Models() []string {
	return append([]string(nil), p.models...)
}
