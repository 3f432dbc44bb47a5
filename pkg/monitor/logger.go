package monitor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"codenames/pkg/llm"
)

// CustomHandler implements slog.Handler to provide [TIME] [LEVEL] format
type CustomHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	opts  slog.HandlerOptions
	attrs []slog.Attr
}

func NewCustomHandler(w io.Writer, opts slog.HandlerOptions) *CustomHandler {
	return &CustomHandler{
		mu:   &sync.Mutex{},
		w:    w,
		opts: opts,
	}
}

func (h *CustomHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *CustomHandler) Handle(ctx context.Context, r slog.Record) error {
	buf := bytes.NewBuffer(nil)

	// Extract DebugID from context if available
	debugID := ""
	if ctx != nil {
		if id, ok := ctx.Value(llm.DebugDirContextKey).(string); ok {
			debugID = id
		}
	}

	// Format: [2006-01-02 15:04:05] [LEVEL] [DEBUG_ID] Message
	// Or:    [2006-01-02 15:04:05] [LEVEL] Message (if no debugID)
	fmt.Fprintf(buf, "[%s] [%s]",
		r.Time.Format("2006-01-02 15:04:05"),
		r.Level,
	)

	if debugID != "" {
		fmt.Fprintf(buf, " [%s]", debugID)
	}

	fmt.Fprintf(buf, " %s", r.Message)

	// Append attributes
	// 1. Stored attributes (from WithAttrs)
	for _, a := range h.attrs {
		h.appendAttr(buf, a)
	}

	// 2. Record attributes
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(buf, a)
		return true
	})

	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *CustomHandler) appendAttr(buf *bytes.Buffer, a slog.Attr) {
	buf.WriteString(" ")
	buf.WriteString(a.Key)
	buf.WriteString("=")

	// Simple value formatting
	val := a.Value.Resolve()
	switch val.Kind() {
	case slog.KindString:
		fmt.Fprintf(buf, "%q", val.String())
	case slog.KindTime:
		buf.WriteString(val.Time().Format(time.RFC3339))
	default:
		fmt.Fprintf(buf, "%v", val.Any())
	}
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CustomHandler{
		mu:    h.mu,
		w:     h.w,
		opts:  h.opts,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	// Grouping not fully supported in this simple implementation
	return h
}

var logLevel = new(slog.LevelVar)

func parseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupSlog initializes the global slog logger with the CustomHandler.
func SetupSlog(levelStr string) {
	logLevel.Set(parseLevel(levelStr))

	handler := NewCustomHandler(os.Stderr, slog.HandlerOptions{
		Level: logLevel,
	})

	slog.SetDefault(slog.New(handler))
}

// SetLevel changes the level of the logger installed by SetupSlog.
func SetLevel(levelStr string) {
	logLevel.Set(parseLevel(levelStr))
}

// PrintBanner prints the startup banner
func PrintBanner() {
	banner := `
  ___  ___   ___   ___  _  _    _    __  __  ___  ___
 / __|/ _ \ |   \ | __|| \| |  /_\  |  \/  || __|/ __|
| (__| (_) || |) || _| | .` + "`" + ` | / _ \ | |\/| || _| \__ \
 \___|\___/ |___/ |___||_|\_|/_/ \_\|_|  |_||___||___/
`
	fmt.Println(banner)
}
