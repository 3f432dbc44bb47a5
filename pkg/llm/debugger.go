package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// StreamDebugger dumps raw provider chunks to debug/chunks/<debug id>/<provider>
// when debug_chunks is on.
type StreamDebugger struct {
	file *os.File
}

// NewStreamDebugger opens the dump file for one call. A disabled or failed
// debugger silently discards writes.
func NewStreamDebugger(ctx context.Context, provider, model string, enabled bool) *StreamDebugger {
	if !enabled {
		return &StreamDebugger{}
	}

	debugDir := filepath.Join("debug", "chunks", provider)
	if id, ok := ctx.Value(DebugDirContextKey).(string); ok && id != "" {
		debugDir = filepath.Join("debug", "chunks", id, provider)
	}

	if err := os.MkdirAll(debugDir, 0755); err != nil {
		slog.ErrorContext(ctx, "Failed to create debug directory", "dir", debugDir, "error", err)
		return &StreamDebugger{}
	}

	name := fmt.Sprintf("%s_%s.log", time.Now().Format("20060102_150405.000"), filenameSafe(model))
	path := filepath.Join(debugDir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to open debug file", "file", path, "error", err)
		return &StreamDebugger{}
	}

	slog.DebugContext(ctx, "Chunk dump enabled", "provider", provider, "file", path)
	return &StreamDebugger{file: f}
}

// WriteJSON marshals v on its own line.
func (d *StreamDebugger) WriteJSON(v any) {
	if d.file == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal debug chunk", "error", err)
		return
	}
	d.WriteString(string(data))
}

// WriteString appends s followed by a newline.
func (d *StreamDebugger) WriteString(s string) {
	if d.file == nil {
		return
	}
	if _, err := d.file.WriteString(s + "\n"); err != nil {
		slog.Warn("Failed to write to debug file", "error", err)
	}
}

func (d *StreamDebugger) Close() {
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
}

func filenameSafe(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
