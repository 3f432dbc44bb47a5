package web

import (
	"errors"
	"log/slog"
	"net/http"

	"codenames/pkg/agent"
	"codenames/pkg/api"
	"codenames/pkg/game"
	"codenames/pkg/history"
)

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason"`
}

// writeError maps an error from the game core onto a status code and body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rejection *game.Rejection
		cfgErr    *game.ConfigError
		protoErr  *agent.ProtocolError
	)
	switch {
	case errors.As(err, &rejection):
		writeJSON(w, http.StatusBadRequest, errorBody{Status: "rejected", Code: string(rejection.Code), Reason: rejection.Reason})
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Status: "rejected", Code: "ConfigError", Reason: cfgErr.Reason})
	case errors.Is(err, api.ErrGameNotFound), errors.Is(err, history.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Status: "error", Code: "NotFound", Reason: err.Error()})
	case errors.As(err, &protoErr):
		writeJSON(w, http.StatusBadGateway, errorBody{Status: "error", Code: "AgentProtocolError", Reason: protoErr.Error()})
	default:
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Status: "error", Code: "Internal", Reason: "internal error"})
	}
}

// badRequest reports a malformed request body or parameter.
func badRequest(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Status: "rejected", Code: string(game.RejectBadAction), Reason: reason})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}
