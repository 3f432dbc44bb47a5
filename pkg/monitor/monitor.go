package monitor

import "time"

// Message types of MonitorMessage.
const (
	TypeInfo  = "INFO"
	TypeClue  = "CLUE"
	TypeGuess = "GUESS"
	TypeWin   = "WIN"
)

// MonitorMessage is one game event shown to an operator.
type MonitorMessage struct {
	Timestamp   time.Time
	MessageType string
	GameID      string
	Team        string // "RED", "BLUE" or empty
	Content     string
}

// Monitor shows game events to an operator.
type Monitor interface {
	// Start begins rendering. It must not block.
	Start() error

	// Stop releases the output.
	Stop() error

	// OnMessage renders one event.
	OnMessage(msg MonitorMessage)
}
