// Package hub provides a thread-safe websocket broadcast hub for the domain
// event stream, using the idiomatic Go channel-based fan-out pattern.
// External consumers (metadata accumulation, UI notification, post-processing
// triggers) subscribe here; the engine itself never blocks on them.
package hub

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mizutama/gamewatch/internal/log"
	"github.com/mizutama/gamewatch/pkg/recording"
)

// Hub maintains the set of active clients and broadcasts domain events to
// them as JSON.
type Hub struct {
	// Name for logging
	name string

	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for client count (read-only access from outside)
	mu sync.RWMutex

	upgrader websocket.Upgrader
}

// New creates a new Hub.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Run starts the hub's main loop. This should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Info("event bus client connected", "hub", h.name, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Info("event bus client disconnected", "hub", h.name, "remaining", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					// Message queued successfully
				default:
					// Client's buffer is full - they're too slow.
					// Close and remove them.
					close(client.send)
					delete(h.clients, client)
					log.Warn("dropped slow event bus client", "hub", h.name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish implements pipeline.EventSink: the domain event is JSON-encoded
// and broadcast to every subscriber. Never blocks the caller; if the
// broadcast queue is full the event is dropped for external consumers only
// (the state machine has already acted on it).
func (h *Hub) Publish(ev recording.DomainEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error("failed to encode domain event", "hub", h.name, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Warn("event bus broadcast queue full, dropping event",
			"hub", h.name, "kind", string(ev.Kind))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket subscription.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "hub", h.name, "error", err)
		return
	}
	client := newClient(h, conn)
	go client.run()
}
