package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/agentcommerce/acp-core/internal/logger"
	"github.com/agentcommerce/acp-core/internal/orchestration"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// eventHub fans out orchestration-plane events to connected websocket
// clients (spec.md §6's real-time event stream).
type eventHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	log     *logger.Logger
}

func newEventHub(log *logger.Logger) *eventHub {
	return &eventHub{clients: make(map[*websocket.Conn]struct{}), log: log}
}

func (h *eventHub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("httpapi: websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.drainClient(conn)
}

// drainClient discards inbound frames (this is a push-only feed) and
// removes the client once its connection closes.
func (h *eventHub) drainClient(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *eventHub) broadcast(kind string, payload interface{}) {
	msg := map[string]interface{}{"type": kind, "payload": payload}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// pumpOrchestrationEvents forwards every AgentRegistry/TaskQueue/MessageBus
// event onto the hub until done is closed or any source channel closes.
func (h *eventHub) pumpOrchestrationEvents(agents <-chan orchestration.AgentEvent, tasks <-chan orchestration.TaskEvent, messages <-chan orchestration.MessageEvent, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-agents:
			if !ok {
				return
			}
			h.broadcast(string(ev.Kind), ev.Agent)
		case ev, ok := <-tasks:
			if !ok {
				return
			}
			h.broadcast(string(ev.Kind), ev.Task)
		case ev, ok := <-messages:
			if !ok {
				return
			}
			h.broadcast(string(ev.Kind), ev.Message)
		}
	}
}
