package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"codenames/pkg/agent"
	"codenames/pkg/api"
	"codenames/pkg/game"
	"codenames/pkg/history"
)

type createRequest struct {
	Difficulty   string            `json:"difficulty"`
	BoardSize    int               `json:"board_size"`
	LLMModel     string            `json:"llm_model"`
	Players      map[string]string `json:"players"`
	StartingTeam string            `json:"starting_team"`
	AutoPlay     *bool             `json:"auto_play"`
}

type movePayload struct {
	Word   string `json:"word"`
	Number *int   `json:"number"`
}

type moveRequest struct {
	ActionType        string      `json:"action_type"`
	Payload           movePayload `json:"payload"`
	Seat              string      `json:"seat"`
	ExpectedTurnCount *int        `json:"expected_turn_count"`
}

type seatRequest struct {
	Controller string `json:"controller"`
}

// agentMove is the wire form of an agent decision.
type agentMove struct {
	Seat      game.Seat           `json:"seat"`
	Actions   []game.Action       `json:"actions"`
	Reasoning game.ReasoningEntry `json:"reasoning"`
	Attempts  int                 `json:"attempts"`
}

type outcomeResponse struct {
	Status       api.Status  `json:"status"`
	Reason       string      `json:"reason,omitempty"`
	State        *game.State `json:"state,omitempty"`
	AgentTurnDue bool        `json:"agent_turn_due"`
	Move         *agentMove  `json:"move,omitempty"`
	Updates      int         `json:"updates"`
}

func (c *WebChannel) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *WebChannel) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	opts := api.CreateOptions{
		BoardSize:  req.BoardSize,
		Difficulty: req.Difficulty,
		LLMModel:   req.LLMModel,
		AutoPlay:   req.AutoPlay,
	}
	if req.StartingTeam != "" {
		team, err := game.ParseTeam(req.StartingTeam)
		if err != nil || !team.IsPlaying() {
			badRequest(w, "starting_team must be RED or BLUE")
			return
		}
		opts.StartingTeam = team
	}
	if len(req.Players) > 0 {
		opts.Players = make(map[game.Seat]game.Controller, len(req.Players))
		for rawSeat, rawController := range req.Players {
			seat, err := game.ParseSeat(rawSeat)
			if err != nil {
				badRequest(w, err.Error())
				return
			}
			controller, err := game.ParseController(rawController)
			if err != nil {
				badRequest(w, err.Error())
				return
			}
			opts.Players[seat] = controller
		}
	}

	state, err := c.games.CreateGame(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"game_id": state.GameID, "state": state})
}

func (c *WebChannel) handleListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"games": c.games.List()})
}

func (c *WebChannel) handleGetGame(w http.ResponseWriter, r *http.Request) {
	state, err := c.games.State(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (c *WebChannel) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	action := game.Action{
		Type: game.ActionType(strings.ToUpper(strings.TrimSpace(req.ActionType))),
		Word: req.Payload.Word,
	}
	if action.Type == game.ActionClue {
		if req.Payload.Number == nil {
			badRequest(w, "clue payload needs a number")
			return
		}
		action.Number = *req.Payload.Number
	}

	var seat game.Seat
	if req.Seat != "" {
		s, err := game.ParseSeat(req.Seat)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		seat = s
	}

	outcome, err := c.games.Submit(r.Context(), r.PathValue("id"), seat, action, req.ExpectedTurnCount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(outcome))
}

func (c *WebChannel) handleAgentMove(w http.ResponseWriter, r *http.Request) {
	var expected *int
	if raw := r.URL.Query().Get("expected_turn_count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(w, "expected_turn_count must be an integer")
			return
		}
		expected = &n
	}

	outcome, err := c.games.TriggerAgent(r.Context(), r.PathValue("id"), expected)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(outcome))
}

func (c *WebChannel) handleSetSeat(w http.ResponseWriter, r *http.Request) {
	seat, err := game.ParseSeat(r.PathValue("seat"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req seatRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	controller, err := game.ParseController(req.Controller)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	state, err := c.games.SetSeat(r.Context(), r.PathValue("id"), seat, controller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": api.StatusSuccess, "state": state, "agent_turn_due": state.AgentDue()})
}

func (c *WebChannel) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if !c.historyEnabled(w) {
		return
	}
	games, err := c.history.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if games == nil {
		games = []history.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (c *WebChannel) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if !c.historyEnabled(w) {
		return
	}
	record, err := c.history.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleHistoryReplay returns the board after the first step log lines. A
// missing step means the whole log.
func (c *WebChannel) handleHistoryReplay(w http.ResponseWriter, r *http.Request) {
	if !c.historyEnabled(w) {
		return
	}
	record, err := c.history.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	step := len(record.Log)
	if raw := r.URL.Query().Get("step"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > len(record.Log) {
			badRequest(w, "step must be between 0 and "+strconv.Itoa(len(record.Log)))
			return
		}
		step = n
	}

	resp := map[string]any{
		"game_id":     record.GameID,
		"step":        step,
		"total_steps": len(record.Log),
		"board":       history.Reconstruct(record.Cards, record.Log, step),
	}
	if step > 0 {
		s := history.Replay(record)[step-1]
		resp["line"] = s.Line
		if s.Reasoning != nil {
			resp["reasoning"] = s.Reasoning
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *WebChannel) historyEnabled(w http.ResponseWriter) bool {
	if c.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Status: "error", Code: "Unavailable", Reason: "history is disabled"})
		return false
	}
	return true
}

func toResponse(o *api.Outcome) outcomeResponse {
	resp := outcomeResponse{
		Status:       o.Status,
		Reason:       o.Reason,
		State:        o.State,
		AgentTurnDue: o.AgentTurnDue,
		Updates:      o.Updates,
	}
	if o.Move != nil {
		resp.Move = wireMove(o.Move)
	}
	return resp
}

func wireMove(d *agent.Decision) *agentMove {
	return &agentMove{
		Seat:      d.Seat,
		Actions:   d.Actions,
		Reasoning: d.Reasoning,
		Attempts:  d.Attempts,
	}
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
