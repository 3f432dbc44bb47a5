package main

import (
	"context"
	"fmt"
	"log/slog"

	"codenames/pkg/agent"
	"codenames/pkg/config"
	"codenames/pkg/game"
	"codenames/pkg/history"
	"codenames/pkg/llm"
	"codenames/pkg/monitor"
	"codenames/pkg/orchestrator"
)

// app holds the wired core shared by every command.
type app struct {
	cfg   *config.Config
	live  *config.Live
	store history.Store
	pool  *llm.Pool
	games *orchestrator.Service
}

func loadConfig() (*config.Config, *config.SystemConfig, error) {
	cfg, sys, err := config.LoadFrom(configPath, systemPath)
	if err != nil {
		return nil, nil, err
	}
	monitor.SetupSlog(sys.LogLevel)
	return cfg, sys, nil
}

func openStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	h := cfg.History
	store, err := history.Open(ctx, h.Backend, h.Dir, history.RedisConfig{
		Addr:     h.Redis.Addr,
		Password: h.Redis.Password,
		DB:       h.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return store, nil
}

// bootstrap wires config, history, the LLM pool and the orchestrator.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, sys, err := loadConfig()
	if err != nil {
		return nil, err
	}
	live := config.NewLive(sys)

	pool, err := llm.NewPoolFromConfig(cfg.LLM, sys)
	if err != nil {
		return nil, fmt.Errorf("init LLM clients: %w", err)
	}
	if cfg.DefaultModel != "" && !pool.Has(cfg.DefaultModel) {
		slog.Warn("Default model is not configured, falling back across all models", "model", cfg.DefaultModel)
	}

	vocabulary, err := game.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	games := orchestrator.New(orchestrator.Options{
		Agents:       agent.NewLLMGateway(pool, live),
		Store:        store,
		Live:         live,
		Vocabulary:   vocabulary,
		DefaultModel: cfg.DefaultModel,
	})

	slog.Info("Core ready", "models", pool.Models(), "history", cfg.History.Backend, "words", len(vocabulary))
	return &app{cfg: cfg, live: live, store: store, pool: pool, games: games}, nil
}

func (a *app) close() {
	a.games.Close()
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close history store", "error", err)
	}
}
