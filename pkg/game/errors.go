package game

import (
	"errors"
	"fmt"
)

// RejectionCode classifies why the rules refused an action.
type RejectionCode string

const (
	RejectIllegalPhase RejectionCode = "IllegalPhase"
	RejectUnknownTile  RejectionCode = "UnknownTile"
	RejectInvalidClue  RejectionCode = "InvalidClue"
	RejectGameOver     RejectionCode = "GameOver"
	RejectBadAction    RejectionCode = "BadAction"
)

// Rejection is returned by Apply when an action is not legal. The state the
// caller passed in is left untouched.
type Rejection struct {
	Code   RejectionCode `json:"code"`
	Reason string        `json:"reason"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Reason)
}

func reject(code RejectionCode, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps a *Rejection from err.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// ConfigError reports a board that cannot be generated from the given
// parameters.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid game config: " + e.Reason
}
