// Package handler serves the spectator surface: a read-only status
// API and a WebSocket feed of game events.
package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WSConn wraps a WebSocket connection with its outbound buffer.
type WSConn struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub manages spectator WebSocket connections. The feed is a single
// channel; every event goes to every connection.
type Hub struct {
	mu          sync.RWMutex
	connections map[*WSConn]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{connections: make(map[*WSConn]bool)}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister removes a connection from the hub.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c]; ok {
		delete(h.connections, c)
		close(c.send)
	}
}

// Broadcast sends an event to every connection. Slow consumers drop
// messages rather than stall the game loop.
func (h *Hub) Broadcast(event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.connections {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("type", event.Type).Msg("Dropping WebSocket message, buffer full")
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
