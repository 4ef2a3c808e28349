package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edyhq/decider-go/core"
)

const writeTimeout = 10 * time.Second

// Hub fans audit entries out to connected dashboard clients. Wire it into
// the service with decider.WithAuditNotifier(hub.Publish).
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is same-deployment; no origin policy here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// Publish sends one audit entry to every connected client. Clients that
// fail a write are dropped.
func (h *Hub) Publish(entry core.AuditLogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(entry); err != nil {
			log.Printf("[SERVER] dropping event client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// handleEvents upgrades the connection and keeps it registered until the
// client disconnects. The read loop only consumes control frames; the
// feed is one-way.
func (h *Hub) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	log.Printf("[SERVER] event client connected (%d total)", h.count())

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if h.clients[conn] {
		conn.Close()
		delete(h.clients, conn)
	}
	h.mu.Unlock()
	log.Printf("[SERVER] event client disconnected (%d total)", h.count())
}

func (h *Hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
