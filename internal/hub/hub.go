// Package hub serves the dashboard: a websocket fan-out for live events and
// a JSON API over the assistant's stores.
package hub

import (
	"encoding/json"
	log "log/slog"
	"net/http"
	"sync"

	ws "github.com/gorilla/websocket"
)

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type inbound struct {
	Event string `json:"event"`
}

// Hub broadcasts events to every connected dashboard and routes inbound
// control events to the daemon through the On* callbacks.
type Hub struct {
	mu      sync.Mutex
	clients map[*ws.Conn]struct{}

	upgrader ws.Upgrader

	OnStartListening func()
	OnStopListening  func()
	OnReadNotes      func()
}

func New() *Hub {
	return &Hub{
		clients: make(map[*ws.Conn]struct{}),
		upgrader: ws.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Emit sends {"event": ..., "data": ...} to every connected client.
// Unwritable clients are dropped.
func (h *Hub) Emit(event string, payload any) {
	msg, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		log.Error("marshal event", "event", event, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(ws.TextMessage, msg); err != nil {
			log.Debug("drop ws client", "err", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected dashboards.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWS upgrades the request and pumps inbound events until the client
// disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("ws upgrade", "err", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	log.Debug("ws client connected", "addr", conn.RemoteAddr())

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway, ws.CloseAbnormalClosure) {
				log.Debug("ws read", "err", err)
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(msg, &in); err != nil {
			log.Debug("bad ws message", "msg", string(msg))
			continue
		}
		h.dispatch(in.Event)
	}
}

func (h *Hub) dispatch(event string) {
	switch event {
	case "start_listening":
		if h.OnStartListening != nil {
			h.OnStartListening()
		}
	case "stop_listening":
		if h.OnStopListening != nil {
			h.OnStopListening()
		}
	case "read_notes":
		if h.OnReadNotes != nil {
			h.OnReadNotes()
		}
	default:
		log.Debug("unknown ws event", "event", event)
	}
}
