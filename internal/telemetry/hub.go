package telemetry

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // monitor UI is served from localhost
	},
}

// Message is one WebSocket push to the monitor UI.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// LinkPayload carries the link-level status shown by the monitor.
type LinkPayload struct {
	Role      string  `json:"role"`
	LinkState string  `json:"linkState"`
	Preset    string  `json:"preset"`
	SNRUp     float64 `json:"snrUp"`
	SNRDown   float64 `json:"snrDown"`
}

// Hub fans status messages out to every connected monitor client.
type Hub struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

// Handler upgrades an HTTP request to a WebSocket and registers the
// client until it disconnects.
func (h *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("telemetry: websocket upgrade: %v", err)
		return
	}
	h.addClient(conn)

	// Drain (and discard) client messages so pings are answered; remove
	// the client when the read loop sees the connection die.
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) addClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	log.Printf("telemetry: monitor connected (%d total)", len(h.clients))
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
	log.Printf("telemetry: monitor disconnected (%d remaining)", len(h.clients))
}

// Broadcast sends a message to all connected clients, dropping any client
// whose connection errors.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("telemetry: marshal: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("telemetry: write: %v", err)
			go h.removeClient(conn)
		}
	}
}

// BroadcastStats pushes the current counter snapshot.
func (h *Hub) BroadcastStats(s Snapshot) {
	h.Broadcast(Message{Type: "stats", Payload: s})
}

// BroadcastLink pushes the current link status.
func (h *Hub) BroadcastLink(p LinkPayload) {
	h.Broadcast(Message{Type: "link", Payload: p})
}
