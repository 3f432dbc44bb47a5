package monitor

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	colorReset = "\033[0m"
	colorGray  = "\033[90m"
	colorRed   = "\033[31m"
	colorBlue  = "\033[34m"
	colorBold  = "\033[1m"
)

// CLIMonitor implements the Monitor interface, printing every game event to
// the terminal with the acting team coloured.
type CLIMonitor struct {
	mu     sync.Mutex
	writer io.Writer // The output destination, typically os.Stdout.
}

// NewCLIMonitor creates a new CLI monitor
func NewCLIMonitor() *CLIMonitor {
	return NewCLIMonitorTo(os.Stdout)
}

func NewCLIMonitorTo(w io.Writer) *CLIMonitor {
	return &CLIMonitor{writer: w}
}

// Start starts the CLI monitor
func (m *CLIMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	fmt.Fprintln(m.writer, "🕵️  CLI Monitor Active - every accepted move will appear here")
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	return nil
}

// Stop stops the CLI monitor
func (m *CLIMonitor) Stop() error {
	return nil
}

func teamColor(team string) string {
	switch team {
	case "RED":
		return colorRed
	case "BLUE":
		return colorBlue
	}
	return ""
}

// OnMessage receives and displays a monitoring message
func (m *CLIMonitor) OnMessage(msg MonitorMessage) {
	timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")

	content := msg.Content
	if c := teamColor(msg.Team); c != "" {
		content = c + content + colorReset
	}
	if msg.MessageType == TypeWin {
		content = colorBold + "🏆 " + content + colorReset
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.writer, "%s[%s]%s [%s] %s\n", colorGray, timestamp, colorReset, msg.GameID, content)
}
