package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// SafeConn serializes writes on a websocket connection.
type SafeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *SafeConn) WriteMessage(messageType int, data []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sc.Conn.WriteMessage(messageType, data)
}

// subscriber is one websocket watching one game. Broadcasts only ever
// enqueue onto send; a dedicated writer drains it. send is never closed,
// done signals the end instead.
type subscriber struct {
	gameID string
	conn   *SafeConn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// hub tracks subscribers per game.
type hub struct {
	mu     sync.RWMutex
	games  map[string]map[*subscriber]struct{}
	buffer int
}

func newHub(buffer int) *hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &hub{games: make(map[string]map[*subscriber]struct{}), buffer: buffer}
}

func (h *hub) subscribe(gameID string, conn *SafeConn) *subscriber {
	sub := &subscriber{gameID: gameID, conn: conn, send: make(chan []byte, h.buffer), done: make(chan struct{})}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.games[gameID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.games[gameID] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	if set, ok := h.games[sub.gameID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.games, sub.gameID)
		}
	}
	h.mu.Unlock()
	sub.close()
}

// count returns the number of subscribers of a game.
func (h *hub) count(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// broadcast enqueues payload for every subscriber of gameID. A subscriber
// whose queue is full is dropped.
func (h *hub) broadcast(gameID string, payload []byte) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.games[gameID]))
	for sub := range h.games[gameID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-sub.done:
		case sub.send <- payload:
		default:
			slog.Warn("Subscriber too slow, dropping", "game", gameID, "remote", sub.conn.RemoteAddr())
			h.unsubscribe(sub)
			sub.conn.Close()
		}
	}
}

// closeAll disconnects every subscriber.
func (h *hub) closeAll() {
	h.mu.Lock()
	var subs []*subscriber
	for _, set := range h.games {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	h.games = make(map[string]map[*subscriber]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
		sub.conn.Close()
	}
}

// writeLoop drains the send queue until the subscriber is closed or a write
// fails.
func (s *subscriber) writeLoop(h *hub) {
	for {
		select {
		case <-s.done:
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case payload := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				slog.Debug("WS write failed", "game", s.gameID, "error", err)
				h.unsubscribe(s)
				s.conn.Close()
				return
			}
		}
	}
}
