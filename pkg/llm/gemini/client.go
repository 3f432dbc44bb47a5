package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"codenames/pkg/llm"

	"google.golang.org/genai"
)

// GeminiClient Google Gemini API client
type GeminiClient struct {
	client       *genai.Client
	model        string
	useThought   bool
	jsonMode     bool
	temperature  *float32
	debugEnabled bool
}

func (g *GeminiClient) SetDebug(enabled bool) {
	g.debugEnabled = enabled
}

// NewGeminiClient creates a Gemini client with a single model and API key
func NewGeminiClient(ctx context.Context, apiKey, model string, useThought, jsonMode bool, options map[string]any) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	g := &GeminiClient{
		client:     client,
		model:      model,
		useThought: useThought,
		jsonMode:   jsonMode,
	}
	if t, ok := options["temperature"].(float64); ok {
		t32 := float32(t)
		g.temperature = &t32
	}
	return g, nil
}

func (g *GeminiClient) Provider() string {
	return "gemini"
}

func (g *GeminiClient) Model() string {
	return g.model
}

// formatModality formats ModalityTokenCount array for logging
func formatModality(details []*genai.ModalityTokenCount) string {
	if len(details) == 0 {
		return "0"
	}
	var res []string
	for _, d := range details {
		res = append(res, fmt.Sprintf("%v: %d", d.Modality, d.TokenCount))
	}
	return strings.Join(res, " | ")
}

func (g *GeminiClient) generateConfig(system *genai.Content) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       g.temperature,
	}
	if g.useThought {
		cfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}
	if g.jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

// StreamChat waits for the first chunk before returning so that connection
// and quota errors surface synchronously and FallbackClient can retry them.
func (g *GeminiClient) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	contents, systemInstruction := convertMessages(messages)

	chunkCh := make(chan llm.StreamChunk, 100)
	startResultCh := make(chan error, 1)

	slog.DebugContext(ctx, "Streaming", "provider", "gemini", "model", g.model)

	go func() {
		defer close(chunkCh)

		debugger := llm.NewStreamDebugger(ctx, "gemini", g.model, g.debugEnabled)
		defer debugger.Close()

		iter := g.client.Models.GenerateContentStream(ctx, g.model, contents, g.generateConfig(systemInstruction))

		started := false
		var lastUsage *llm.LLMUsage
		finishReason := llm.StopReasonStop

		for resp, err := range iter {
			if resp != nil {
				debugger.WriteJSON(resp)
			}
			if err != nil {
				if resp == nil {
					slog.ErrorContext(ctx, "Stream error", "provider", "gemini", "error", err)
					if !started {
						startResultCh <- err
					} else {
						chunkCh <- llm.NewErrorChunk(fmt.Sprintf("stream interrupted: %v", err), err, true)
					}
					return
				}
				slog.WarnContext(ctx, "Stream error with data", "provider", "gemini", "error", err)
			}

			if !started {
				started = true
				startResultCh <- nil
			}

			if resp.UsageMetadata != nil {
				u := resp.UsageMetadata
				lastUsage = &llm.LLMUsage{
					PromptTokens:     int(u.PromptTokenCount),
					PromptDetail:     formatModality(u.PromptTokensDetails),
					CompletionTokens: int(u.CandidatesTokenCount),
					CompletionDetail: formatModality(u.CandidatesTokensDetails),
					TotalTokens:      int(u.TotalTokenCount),
					ThoughtsTokens:   int(u.ThoughtsTokenCount),
					CachedTokens:     int(u.CachedContentTokenCount),
				}
			}

			for _, candidate := range resp.Candidates {
				if candidate.FinishReason == genai.FinishReasonMaxTokens {
					finishReason = llm.StopReasonLength
				}
				if candidate.Content == nil {
					continue
				}
				var blocks []llm.ContentBlock
				for _, part := range candidate.Content.Parts {
					if part.Text == "" {
						continue
					}
					if part.Thought {
						blocks = append(blocks, llm.ContentBlock{Type: llm.BlockTypeThinking, Text: part.Text})
					} else {
						blocks = append(blocks, llm.ContentBlock{Type: llm.BlockTypeText, Text: part.Text})
					}
				}
				if len(blocks) > 0 {
					chunkCh <- llm.StreamChunk{ContentBlocks: blocks}
				}
			}
		}

		if !started {
			startResultCh <- nil
		}
		if lastUsage != nil {
			lastUsage.StopReason = finishReason
		}
		chunkCh <- llm.NewFinalChunk(finishReason, lastUsage)
		llm.LogUsage(ctx, g.model, lastUsage)
	}()

	select {
	case err := <-startResultCh:
		if err != nil {
			return nil, err
		}
		return chunkCh, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// convertMessages maps the system message to SystemInstruction and the rest
// to user/model contents.
func convertMessages(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemInstruction *genai.Content

	for _, msg := range messages {
		text := msg.GetTextContent()
		if text == "" {
			continue
		}
		if msg.Role == "system" {
			systemInstruction = &genai.Content{Parts: []*genai.Part{{Text: text}}}
			continue
		}
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: text}},
		})
	}
	return contents, systemInstruction
}

func (g *GeminiClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "503") || strings.Contains(errMsg, "overloaded") {
		return true
	}
	if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "resource exhausted") {
		return true
	}
	if strings.Contains(errMsg, "500") || strings.Contains(errMsg, "internal error") {
		return true
	}
	return false
}
