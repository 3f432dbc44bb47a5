package llm

import (
	"strings"
	"time"
)

//----------------------------------------------------------------
// Message
//----------------------------------------------------------------

// Message is one turn of a conversation.
type Message struct {
	Role      string         `json:"role"` // "system", "user", "assistant"
	Content   []ContentBlock `json:"content"`
	Timestamp int64          `json:"timestamp,omitempty"`
}

// ContentBlock is a typed piece of message content.
type ContentBlock struct {
	Type string `json:"type"` // BlockTypeText, BlockTypeThinking, BlockTypeError
	Text string `json:"text,omitempty"`
}

// StreamChunk is an incremental piece of a streamed response.
type StreamChunk struct {
	ContentBlocks []ContentBlock `json:"content_blocks,omitempty"`

	// IsFinal marks the last chunk of a stream.
	IsFinal bool `json:"is_final"`

	// FinishReason is only set on the final chunk.
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage may arrive early but is always present on the final chunk when
	// the provider reports it.
	Usage *LLMUsage `json:"usage,omitempty"`

	// Err carries the provider error behind an error block.
	Err error `json:"-"`
}

//----------------------------------------------------------------
// Helper Functions - Message
//----------------------------------------------------------------

func NewTextMessage(role, text string) Message {
	return Message{
		Role:      role,
		Content:   []ContentBlock{{Type: BlockTypeText, Text: text}},
		Timestamp: time.Now().Unix(),
	}
}

func NewSystemMessage(text string) Message {
	return NewTextMessage("system", text)
}

func NewUserMessage(text string) Message {
	return NewTextMessage("user", text)
}

func NewAssistantMessage(text string) Message {
	return NewTextMessage("assistant", text)
}

// GetTextContent joins the text blocks, skipping thinking.
func (m *Message) GetTextContent() string {
	var sb strings.Builder
	for _, block := range m.Content {
		if block.Type == BlockTypeText {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

//----------------------------------------------------------------
// Helper Functions - StreamChunk
//----------------------------------------------------------------

func NewTextChunk(text string) StreamChunk {
	return StreamChunk{ContentBlocks: []ContentBlock{{Type: BlockTypeText, Text: text}}}
}

func NewThinkingChunk(text string) StreamChunk {
	return StreamChunk{ContentBlocks: []ContentBlock{{Type: BlockTypeThinking, Text: text}}}
}

// NewFinalChunk closes a successful stream.
func NewFinalChunk(reason string, usage *LLMUsage) StreamChunk {
	return StreamChunk{
		IsFinal:      true,
		FinishReason: reason,
		Usage:        usage,
	}
}

// NewErrorChunk reports a provider failure. A fatal chunk also ends the
// stream.
func NewErrorChunk(msg string, err error, fatal bool) StreamChunk {
	return StreamChunk{
		ContentBlocks: []ContentBlock{{Type: BlockTypeError, Text: msg}},
		IsFinal:       fatal,
		FinishReason:  StopReasonError,
		Err:           err,
	}
}
