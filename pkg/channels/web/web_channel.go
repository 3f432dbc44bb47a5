package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"codenames/pkg/api"
	"codenames/pkg/game"
	"codenames/pkg/history"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for decoupled UI
	},
}

// WebConfig is the "web" entry of the channels config. Empty fields fall
// back to the top level "server" section.
type WebConfig struct {
	Addr        string `json:"addr"`
	AccessToken string `json:"access_token"`
	// QueueSize bounds the pending updates of one websocket subscriber.
	QueueSize int `json:"queue_size"`
}

// WebChannel serves the game API and pushes live state over websockets.
type WebChannel struct {
	config  WebConfig
	server  *http.Server
	hub     *hub
	games   api.GameService
	history history.Store
	mu      sync.Mutex
}

func NewWebChannel(cfg WebConfig) *WebChannel {
	return &WebChannel{
		config: cfg,
		hub:    newHub(cfg.QueueSize),
	}
}

func (c *WebChannel) ID() string {
	return "web"
}

// Handler binds the channel to the game core and returns its routes.
func (c *WebChannel) Handler(ctx api.ChannelContext) http.Handler {
	c.games = ctx.Games()
	c.history = ctx.History()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", c.handleHealth)

	mux.HandleFunc("POST /api/game/create", c.requireToken(c.handleCreate))
	mux.HandleFunc("GET /api/games", c.handleListGames)
	mux.HandleFunc("GET /api/game/{id}", c.handleGetGame)
	mux.HandleFunc("POST /api/game/{id}/move", c.handleMove)
	mux.HandleFunc("POST /api/game/{id}/agent-move", c.requireToken(c.handleAgentMove))
	mux.HandleFunc("PUT /api/game/{id}/players/{seat}", c.requireToken(c.handleSetSeat))

	mux.HandleFunc("GET /api/history/list", c.handleHistoryList)
	mux.HandleFunc("GET /api/history/{id}", c.handleHistoryGet)
	mux.HandleFunc("GET /api/history/{id}/replay", c.handleHistoryReplay)

	mux.HandleFunc("GET /ws/{id}", c.handleWebSocket)
	return withCORS(mux)
}

func (c *WebChannel) Start(ctx api.ChannelContext) error {
	ln, err := net.Listen("tcp", c.config.Addr)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.server = &http.Server{
		Handler:           c.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := c.server
	c.mu.Unlock()

	slog.Info("Web API listening", "addr", ln.Addr().String())

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Web API server error", "error", err)
		}
	}()

	return nil
}

func (c *WebChannel) Stop() error {
	c.hub.closeAll()

	c.mu.Lock()
	server := c.server
	c.mu.Unlock()
	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// Publish implements api.Channel. It never blocks.
func (c *WebChannel) Publish(update api.StateUpdate) {
	if c.hub.count(update.GameID) == 0 {
		return
	}
	payload, err := json.Marshal(update)
	if err != nil {
		slog.Error("Failed to marshal state update", "game", update.GameID, "error", err)
		return
	}
	c.hub.broadcast(update.GameID, payload)
}

// requireToken gates a handler behind the X-Access-Token header when an
// access token is configured.
func (c *WebChannel) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c.config.AccessToken != "" {
			got := r.Header.Get("X-Access-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(c.config.AccessToken)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody{Status: "error", Code: "Unauthorized", Reason: "invalid or missing access token"})
				return
			}
		}
		next(w, r)
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Access-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *WebChannel) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	if _, err := c.games.State(gameID); err != nil {
		writeError(w, r, err)
		return
	}

	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WS Upgrade failed", "error", err)
		return
	}
	conn := &SafeConn{Conn: rawConn}

	// Subscribing and queueing the snapshot happen under the game lock, so
	// every update queued after it is newer.
	var sub *subscriber
	err = c.games.Observe(gameID, func(state *game.State) {
		sub = c.hub.subscribe(gameID, conn)
		payload, err := json.Marshal(api.StateUpdate{
			Type:         api.UpdateTypeState,
			GameID:       gameID,
			State:        state,
			AgentTurnDue: state.AgentDue(),
		})
		if err != nil {
			return
		}
		select {
		case sub.send <- payload:
		default:
		}
	})
	if err != nil {
		conn.Close()
		return
	}
	slog.Debug("WS subscriber joined", "game", gameID, "remote", r.RemoteAddr)

	go sub.writeLoop(c.hub)

	defer func() {
		c.hub.unsubscribe(sub)
		conn.Close()
		slog.Debug("WS subscriber left", "game", gameID, "remote", r.RemoteAddr)
	}()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
