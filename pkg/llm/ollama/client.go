package ollama

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"codenames/pkg/llm"

	"github.com/ollama/ollama/api"
)

// OllamaClient Ollama API client
type OllamaClient struct {
	client       *api.Client
	model        string
	options      map[string]any
	jsonMode     bool
	debugEnabled bool
}

func (o *OllamaClient) SetDebug(enabled bool) {
	o.debugEnabled = enabled
}

// NewOllamaClient creates an Ollama client. The HTTP client imposes no
// timeout of its own; callers bound each request with their context.
func NewOllamaClient(model, baseURL string, jsonMode bool, options map[string]any) (*OllamaClient, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	httpClient := &http.Client{
		Transport: &JSONFixingRoundTripper{Proxied: transport},
	}

	var client *api.Client
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		client = api.NewClient(u, httpClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
	}

	slog.Info("Ollama client initialized", "model", model, "base_url", baseURL)

	return &OllamaClient{
		client:   client,
		model:    model,
		options:  options,
		jsonMode: jsonMode,
	}, nil
}

func (o *OllamaClient) Provider() string {
	return "ollama"
}

func (o *OllamaClient) Model() string {
	return o.model
}

func (o *OllamaClient) chatOptions() map[string]any {
	opts := make(map[string]any, len(o.options))
	for k, v := range o.options {
		switch k {
		case "json_mode", "thinking_effort":
			continue
		}
		opts[k] = v
	}
	return opts
}

func (o *OllamaClient) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	apiMessages := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		apiMessages = append(apiMessages, api.Message{Role: m.Role, Content: m.GetTextContent()})
	}

	chunkCh := make(chan llm.StreamChunk, 100)
	startResultCh := make(chan error, 1)

	go func() {
		defer close(chunkCh)

		stream := true
		req := &api.ChatRequest{
			Model:    o.model,
			Messages: apiMessages,
			Options:  o.chatOptions(),
			Stream:   &stream,
		}
		if o.jsonMode {
			req.Format = []byte(`"json"`)
		}

		debugger := llm.NewStreamDebugger(ctx, "ollama", o.model, o.debugEnabled)
		defer debugger.Close()

		started := false
		chunks := 0
		thoughts := 0

		err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			chunks++
			debugger.WriteJSON(resp)

			if !started {
				started = true
				startResultCh <- nil
			}

			if resp.Message.Thinking != "" {
				thoughts++
				chunkCh <- llm.NewThinkingChunk(resp.Message.Thinking)
			}
			if resp.Message.Content != "" {
				chunkCh <- llm.NewTextChunk(resp.Message.Content)
			}

			if resp.Done {
				usage := &llm.LLMUsage{
					PromptTokens:     resp.PromptEvalCount,
					CompletionTokens: resp.EvalCount,
					TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
					ThoughtsTokens:   thoughts,
					StopReason:       resp.DoneReason,
				}
				reason := llm.StopReasonStop
				if resp.DoneReason == llm.StopReasonLength {
					slog.WarnContext(ctx, "Response truncated due to length", "provider", "ollama")
					reason = llm.StopReasonLength
				}
				chunkCh <- llm.NewFinalChunk(reason, usage)
				llm.LogUsage(ctx, o.model, usage)
			}
			return nil
		})

		if err != nil {
			slog.ErrorContext(ctx, "Stream error", "provider", "ollama", "model", o.model, "chunks", chunks, "error", err)
			if !started {
				startResultCh <- err
				return
			}
			chunkCh <- llm.NewErrorChunk(fmt.Sprintf("stream interrupted: %v", err), err, true)
		} else if !started {
			startResultCh <- nil
		}
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

func (o *OllamaClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "connection reset") {
		return true
	}
	if strings.Contains(errMsg, "overloaded") || strings.Contains(errMsg, "server busy") {
		return true
	}
	return false
}

//----------------------------------------------------------------
// JSONFixingRoundTripper
//----------------------------------------------------------------

// JSONFixingRoundTripper strips illegal escapes such as \$ that some models
// emit inside streamed JSON, which would otherwise abort decoding.
type JSONFixingRoundTripper struct {
	Proxied http.RoundTripper
}

func (j *JSONFixingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := j.Proxied.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") || strings.Contains(ct, "application/x-ndjson") {
		resp.Body = &jsonFixingReadCloser{body: resp.Body}
	}
	return resp, nil
}

type jsonFixingReadCloser struct {
	body io.ReadCloser
}

var illegalEscapeRegex = regexp.MustCompile(`\\([^\/\\bfnrtu"])`)

func (j *jsonFixingReadCloser) Read(p []byte) (n int, err error) {
	n, err = j.body.Read(p)
	if n > 0 {
		content := string(p[:n])
		fixed := illegalEscapeRegex.ReplaceAllString(content, "$1")
		if len(fixed) < len(content) {
			// only backslashes are removed, so the result always fits in p
			n = copy(p, fixed)
		}
	}
	return n, err
}

func (j *jsonFixingReadCloser) Close() error {
	return j.body.Close()
}
