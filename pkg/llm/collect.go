package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Reply is a fully drained stream.
type Reply struct {
	Text         string
	Thinking     string
	FinishReason string
	Usage        *LLMUsage
}

// ErrTruncated is returned when the provider stopped on its length limit.
var ErrTruncated = errors.New("response truncated by length limit")

// Collect drains a chunk stream into a Reply. It returns on the first fatal
// error chunk or when ctx is done.
func Collect(ctx context.Context, chunks <-chan StreamChunk) (*Reply, error) {
	var text, thinking strings.Builder
	reply := &Reply{}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				reply.Text = text.String()
				reply.Thinking = thinking.String()
				if reply.FinishReason == StopReasonLength {
					return reply, ErrTruncated
				}
				return reply, nil
			}

			for _, block := range chunk.ContentBlocks {
				switch block.Type {
				case BlockTypeText:
					text.WriteString(block.Text)
				case BlockTypeThinking:
					thinking.WriteString(block.Text)
				case BlockTypeError:
					if chunk.IsFinal {
						if chunk.Err != nil {
							return nil, fmt.Errorf("%s: %w", block.Text, chunk.Err)
						}
						return nil, errors.New(block.Text)
					}
				}
			}

			if chunk.Usage != nil {
				reply.Usage = chunk.Usage
			}
			if chunk.IsFinal && chunk.FinishReason != "" {
				reply.FinishReason = chunk.FinishReason
			}
		}
	}
}
