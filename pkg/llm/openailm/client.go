package openailm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"codenames/pkg/llm"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

// Client is a wrapper around the official OpenAI Go SDK. Any endpoint that
// speaks the Responses API works through BaseURL.
type Client struct {
	client       *openai.Client
	provider     string
	model        string
	jsonMode     bool
	debugEnabled bool
	options      map[string]any
}

func NewClient(provider, apiKey, model, baseURL string, jsonMode bool, options map[string]any) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)
	return &Client{
		client:   &client,
		provider: provider,
		model:    model,
		jsonMode: jsonMode,
		options:  options,
	}
}

func (c *Client) Provider() string {
	return c.provider
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) SetDebug(enabled bool) {
	c.debugEnabled = enabled
}

func (c *Client) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") {
		return true
	}

	if strings.Contains(msg, "429") ||
		strings.Contains(msg, "500 internal") ||
		strings.Contains(msg, "502 bad gateway") ||
		strings.Contains(msg, "503 service unavailable") ||
		strings.Contains(msg, "overloaded") {
		return true
	}

	return false
}

func (c *Client) requestOptions() (responses.ResponseNewParams, []option.RequestOption) {
	params := responses.ResponseNewParams{
		Model: c.model,
	}
	var opts []option.RequestOption

	if effortStr, ok := c.options["thinking_effort"].(string); ok && effortStr != "" && effortStr != "off" {
		var effort shared.ReasoningEffort
		switch effortStr {
		case "low":
			effort = shared.ReasoningEffortLow
		case "high":
			effort = shared.ReasoningEffortHigh
		default:
			effort = shared.ReasoningEffortMedium
		}
		params.Reasoning = shared.ReasoningParam{Effort: effort}
	}

	if t, ok := c.options["temperature"].(float64); ok {
		opts = append(opts, option.WithJSONSet("temperature", t))
	}
	if p, ok := c.options["top_p"].(float64); ok {
		opts = append(opts, option.WithJSONSet("top_p", p))
	}
	if maxTok, ok := c.options["max_tokens"].(float64); ok {
		opts = append(opts, option.WithJSONSet("max_output_tokens", int(maxTok)))
	}
	if c.jsonMode {
		opts = append(opts, option.WithJSONSet("text", map[string]any{
			"format": map[string]any{"type": "json_object"},
		}))
	}
	return params, opts
}

func (c *Client) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	chunkCh := make(chan llm.StreamChunk, 100)

	params, opts := c.requestOptions()
	params.Input = responses.ResponseNewParamsInputUnion{
		OfInputItemList: convertMessages(messages),
	}

	go func() {
		defer close(chunkCh)

		stream := c.client.Responses.NewStreaming(ctx, params, opts...)
		defer stream.Close()

		debugger := llm.NewStreamDebugger(ctx, c.provider, c.model, c.debugEnabled)
		defer debugger.Close()

		var finishReason string
		var usage *llm.LLMUsage
		var thinking strings.Builder

		for stream.Next() {
			event := stream.Current()
			debugger.WriteString(event.RawJSON())

			switch variant := event.AsAny().(type) {
			case responses.ResponseTextDeltaEvent:
				chunkCh <- llm.NewTextChunk(variant.Delta)

			case responses.ResponseReasoningTextDeltaEvent:
				thinking.WriteString(variant.Delta)
				chunkCh <- llm.NewThinkingChunk(variant.Delta)

			case responses.ResponseReasoningSummaryTextDeltaEvent:
				thinking.WriteString(variant.Delta)
				chunkCh <- llm.NewThinkingChunk(variant.Delta)

			case responses.ResponseCompletedEvent:
				finishReason = llm.StopReasonStop
				u := variant.Response.Usage
				if u.TotalTokens > 0 {
					usage = &llm.LLMUsage{
						PromptTokens:     int(u.InputTokens),
						CompletionTokens: int(u.OutputTokens),
						TotalTokens:      int(u.TotalTokens),
						ThoughtsTokens:   int(u.OutputTokensDetails.ReasoningTokens),
						CachedTokens:     int(u.InputTokensDetails.CachedTokens),
						StopReason:       llm.StopReasonStop,
					}
				}

			case responses.ResponseIncompleteEvent:
				finishReason = llm.StopReasonLength

			case responses.ResponseFailedEvent:
				chunkCh <- llm.NewErrorChunk("API response failed", nil, true)
				return

			case responses.ResponseErrorEvent:
				chunkCh <- llm.NewErrorChunk(fmt.Sprintf("API error: %s", variant.Message), nil, true)
				return
			}
		}

		if thinking.Len() > 0 {
			slog.DebugContext(ctx, "Captured thinking", "provider", c.provider, "content", thinking.String())
		}

		if err := stream.Err(); err != nil {
			chunkCh <- llm.NewErrorChunk(fmt.Sprintf("stream error: %v", err), err, true)
			return
		}
		if finishReason == "" {
			finishReason = llm.StopReasonStop
		}
		chunkCh <- llm.NewFinalChunk(finishReason, usage)
		llm.LogUsage(ctx, c.model, usage)
	}()

	return chunkCh, nil
}

func convertMessages(messages []llm.Message) []responses.ResponseInputItemUnionParam {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(messages))
	for _, m := range messages {
		var role responses.EasyInputMessageRole
		switch m.Role {
		case "system":
			role = responses.EasyInputMessageRoleSystem
		case "assistant":
			role = responses.EasyInputMessageRoleAssistant
		default:
			role = responses.EasyInputMessageRoleUser
		}
		text := m.GetTextContent()
		if text == "" {
			continue
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(text, role))
	}
	return items
}
