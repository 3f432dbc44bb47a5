package agent

import (
	"fmt"

	"codenames/pkg/game"
)

// ProtocolError means the model could not produce a usable move within the
// attempt budget. Game state is never touched when it is returned.
type ProtocolError struct {
	Seat     game.Seat
	Model    string
	Attempts int
	Reason   string
	Err      error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("agent %s (%s) failed after %d attempt(s): %s", e.Seat, e.Model, e.Attempts, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// invalidReply is a parse or validation failure that is fed back to the model
// on the next attempt.
type invalidReply struct {
	reason string
}

func (e *invalidReply) Error() string {
	return e.reason
}

func invalidf(format string, args ...any) error {
	return &invalidReply{reason: fmt.Sprintf(format, args...)}
}
