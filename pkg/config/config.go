package config

import (
	"fmt"
	"os"
	"regexp"
	"sync/atomic"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config defines the application configuration loaded from config.json.
// It holds deployment-level settings: where to listen, which LLM providers
// exist, where history goes and which channels are enabled.
type Config struct {
	// Server configures the HTTP listener of the web channel.
	Server ServerConfig `json:"server"`
	// LLM holds the provider group array in raw JSON. It is decoded by
	// package llm so that each provider can own its option keys.
	LLM jsoniter.RawMessage `json:"llm"`
	// DefaultModel is used for games created without an llm_model.
	DefaultModel string `json:"default_model"`
	// History selects the record store backend.
	History HistoryConfig `json:"history"`
	// Channels contains a map of channel identifiers (e.g., "telegram", "web")
	// to their specific configuration payloads in raw JSON format.
	Channels map[string]jsoniter.RawMessage `json:"channels"`
	// VocabularyFile optionally replaces the built-in word list. One word or
	// phrase per line.
	VocabularyFile string `json:"vocabulary_file"`
}

// ServerConfig is the HTTP surface.
type ServerConfig struct {
	Addr string `json:"addr"`
	// AccessToken gates mutating endpoints when non-empty.
	AccessToken string `json:"access_token"`
}

// HistoryConfig selects between the "file" and "redis" record stores.
type HistoryConfig struct {
	Backend string      `json:"backend"`
	Dir     string      `json:"dir"`
	Redis   RedisConfig `json:"redis"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Validate ensures the configuration structure contains all mandatory fields.
// It also fills defaults for optional sections.
func (c *Config) Validate() error {
	if len(c.LLM) == 0 {
		return fmt.Errorf("mandatory 'llm' configuration is missing or empty")
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	switch c.History.Backend {
	case "":
		c.History.Backend = "file"
	case "file", "redis":
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}
	if c.History.Backend == "file" && c.History.Dir == "" {
		c.History.Dir = "history"
	}
	if c.History.Backend == "redis" && c.History.Redis.Addr == "" {
		return fmt.Errorf("history backend 'redis' requires redis.addr")
	}
	return nil
}

// SystemConfig defines engine-level technical parameters.
// These settings are stored in system.json and control retries, timeouts,
// agent behaviour and logging. They can be changed while the server runs.
type SystemConfig struct {
	// MaxRetries is the number of times a provider call is retried on a
	// transient error before the next fallback client is tried.
	MaxRetries int `json:"max_retries"`
	// RetryDelayMs is the base delay (in milliseconds) between retries.
	RetryDelayMs int `json:"retry_delay_ms"`
	// LLMTimeoutMs is the hard cutoff (in milliseconds) for one agent
	// attempt. Exceeding it counts as a failed attempt.
	LLMTimeoutMs int `json:"llm_timeout_ms"`
	// AgentMaxAttempts bounds the parse/validate/retry loop of one agent move.
	AgentMaxAttempts int `json:"agent_max_attempts"`
	// AutoPlayAgents makes the server trigger due agent turns by itself.
	AutoPlayAgents bool `json:"auto_play_agents"`
	// AutoPlayDelayMs is the pause before an automatic agent turn.
	AutoPlayDelayMs int `json:"auto_play_delay_ms"`
	// OllamaDefaultURL is the fallback endpoint used when an ollama group
	// has no base_url.
	OllamaDefaultURL string `json:"ollama_default_url"`
	// InternalChannelBuffer is the size of per-subscriber send queues.
	InternalChannelBuffer int `json:"internal_channel_buffer"`
	// TelegramMessageLimit is the maximum character count for a single
	// Telegram message. Longer texts are split.
	TelegramMessageLimit int `json:"telegram_message_limit"`
	// DebugChunks enables saving every raw LLM response chunk to the /debug
	// folder for inspection and troubleshooting purposes.
	DebugChunks bool `json:"debug_chunks"`
	// LogLevel sets the minimum severity for log output.
	// Accepted values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `json:"log_level"`
}

// DefaultSystemConfig returns a SystemConfig pointer initialized with hardcoded
// safe default values. This is used as a fallback when the system.json file
// is missing or corrupt, ensuring the engine can always start.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxRetries:            3,
		RetryDelayMs:          500,
		LLMTimeoutMs:          120000,
		AgentMaxAttempts:      3,
		AutoPlayAgents:        false,
		AutoPlayDelayMs:       1000,
		OllamaDefaultURL:      "http://localhost:11434",
		InternalChannelBuffer: 100,
		TelegramMessageLimit:  4000,
		LogLevel:              "info",
	}
}

// LoadFrom reads the application and system configs after loading .env, so
// ${VAR} references in either file resolve to secrets kept outside of them.
// A missing system file yields defaults.
func LoadFrom(appPath, sysPath string) (*Config, *SystemConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	if _, err := os.Stat(appPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("config file '%s' not found. please create one", appPath)
	}

	appFile, err := os.ReadFile(appPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseConfig(appFile)
	if err != nil {
		return nil, nil, err
	}

	return cfg, LoadSystemConfig(sysPath), nil
}

// ParseConfig expands environment references and decodes an application
// config.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(expandEnv(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSystemConfig attempts to load system settings, returns defaults if it fails
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg // File not found, use defaults
	}

	if err := json.Unmarshal(expandEnv(file), cfg); err != nil {
		return DefaultSystemConfig() // Parse failed, use defaults
	}
	if cfg.AgentMaxAttempts <= 0 {
		cfg.AgentMaxAttempts = 1
	}
	return cfg
}

var envRefRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references. Bare $ signs and unset variables are
// left alone so that values like passwords survive.
func expandEnv(data []byte) []byte {
	return envRefRegex.ReplaceAllFunc(data, func(ref []byte) []byte {
		key := string(ref[2 : len(ref)-1])
		if v, ok := os.LookupEnv(key); ok {
			return []byte(v)
		}
		return ref
	})
}

// Live holds the current SystemConfig and is swapped on hot reload.
type Live struct {
	p atomic.Pointer[SystemConfig]
}

func NewLive(cfg *SystemConfig) *Live {
	l := &Live{}
	l.Store(cfg)
	return l
}

// Load returns the current snapshot. Callers must not mutate it.
func (l *Live) Load() *SystemConfig {
	if cfg := l.p.Load(); cfg != nil {
		return cfg
	}
	return DefaultSystemConfig()
}

func (l *Live) Store(cfg *SystemConfig) {
	if cfg == nil {
		cfg = DefaultSystemConfig()
	}
	l.p.Store(cfg)
}
