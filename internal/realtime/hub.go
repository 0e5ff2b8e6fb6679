package realtime

import (
	"log/slog"
	"sync"
	"time"
)

// Hub holds the subscribers of a single channel.
// Delivery happens on the publishing goroutine so a subscriber sees events in publish order,
// including across hubs. A full subscriber buffer drops the event for that subscriber only.
type Hub struct {
	channel string
	clients map[*Client]struct{}
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewHub creates a new Hub for a channel
func NewHub(channel string, logger *slog.Logger) *Hub {
	return &Hub{
		channel: channel,
		clients: make(map[*Client]struct{}),
		logger:  logger.With(slog.String("channel", channel)),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("client registered",
		slog.String("client_id", client.id),
		slog.Int("total_clients", clientCount))
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("client unregistered",
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", clientCount))
}

// Broadcast sends an event to all clients
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	sentCount := 0
	droppedCount := 0
	for client := range h.clients {
		if client.Send(ev) {
			sentCount++
		} else {
			droppedCount++
		}
	}
	h.mu.RUnlock()

	if droppedCount > 0 {
		h.logger.Warn("broadcast partial failure",
			slog.String("event", ev.Name),
			slog.Int("sent", sentCount),
			slog.Int("dropped", droppedCount))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
