package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// json is used for all JSON handling inside package llm
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LLMUsage is the provider neutral token accounting of one call.
type LLMUsage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	ThoughtsTokens   int    `json:"thoughts_tokens,omitempty"`
	CachedTokens     int    `json:"cached_tokens,omitempty"`
	PromptDetail     string `json:"prompt_detail,omitempty"`
	CompletionDetail string `json:"completion_detail,omitempty"`
	StopReason       string `json:"stop_reason,omitempty"`
}

// LogUsage logs token usage in one line.
func LogUsage(ctx context.Context, model string, usage *LLMUsage) {
	if usage == nil {
		return
	}
	attrs := []any{
		"model", model,
		"prompt", usage.PromptTokens,
		"completion", usage.CompletionTokens,
		"total", usage.TotalTokens,
	}
	if usage.ThoughtsTokens > 0 {
		attrs = append(attrs, "thoughts", usage.ThoughtsTokens)
	}
	if usage.CachedTokens > 0 {
		attrs = append(attrs, "cached", usage.CachedTokens)
	}
	if usage.StopReason != "" {
		attrs = append(attrs, "stop_reason", usage.StopReason)
	}
	slog.InfoContext(ctx, "LLM usage", attrs...)
}

// LLMClient is the single interface every provider adapter implements.
type LLMClient interface {
	// StreamChat sends the conversation and returns incremental chunks. The
	// channel is closed after a final or fatal error chunk.
	StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error)

	// IsTransientError reports whether err is worth retrying (503, rate limit).
	IsTransientError(err error) bool

	// Provider names the backend, e.g. "openai".
	Provider() string

	// Model is the model identifier requests are sent to.
	Model() string
}

// FallbackClient tries each client in order, retrying transient failures.
type FallbackClient struct {
	Clients    []LLMClient
	MaxRetries int
	RetryDelay time.Duration
}

func (f *FallbackClient) StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			slog.WarnContext(ctx, "Previous provider failed, trying fallback", "index", i+1, "provider", client.Provider(), "model", client.Model())
		}

		maxRetries := f.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 1
		}

		for retry := 1; retry <= maxRetries; retry++ {
			if retry > 1 {
				slog.InfoContext(ctx, "Retrying provider", "index", i+1, "attempt", retry, "max", maxRetries)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(retry-1) * f.RetryDelay):
				}
			}

			ch, err := client.StreamChat(ctx, messages)
			if err == nil {
				return ch, nil
			}

			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			if client.IsTransientError(err) && retry < maxRetries {
				slog.WarnContext(ctx, "Provider failed with transient error", "index", i+1, "error", err)
				continue
			}

			slog.ErrorContext(ctx, "Provider failed", "index", i+1, "error", err)
			break
		}
	}
	return nil, fmt.Errorf("all fallback providers failed: %w", lastErr)
}

// IsTransientError always reports false; retries already happened inside.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}

func (f *FallbackClient) Provider() string {
	return "fallback"
}

func (f *FallbackClient) Model() string {
	if len(f.Clients) == 0 {
		return ""
	}
	return f.Clients[0].Model()
}
