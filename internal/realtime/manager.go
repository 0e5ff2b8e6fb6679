package realtime

import (
	"log/slog"
	"sync"

	"github.com/mcoot/duelrooms/internal/model"
)

// GlobalChannel is the channel every connection receives room list updates on
const GlobalChannel = "rooms"

// RoomChannel returns the channel name for a room
func RoomChannel(id model.RoomID) string {
	return "room:" + string(id)
}

// HubManager manages hubs for all channels
type HubManager struct {
	hubs   map[string]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[string]*Hub),
		logger: logger.With(slog.String("component", "realtime")),
	}
}

// Subscribe registers the client on a channel, creating the hub if needed
func (m *HubManager) Subscribe(channel string, client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub, ok := m.hubs[channel]
	if !ok {
		hub = NewHub(channel, m.logger)
		m.hubs[channel] = hub
	}
	hub.Register(client)
}

// Unsubscribe removes the client from one channel. The hub goes with its last subscriber.
func (m *HubManager) Unsubscribe(channel string, client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[channel]; ok {
		hub.Unregister(client)
		m.dropIfEmpty(channel, hub)
	}
}

// UnsubscribeAll removes the client from every channel
func (m *HubManager) UnsubscribeAll(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for channel, hub := range m.hubs {
		hub.Unregister(client)
		m.dropIfEmpty(channel, hub)
	}
}

// dropIfEmpty forgets an empty hub. Callers hold m.mu for writing, so no Subscribe
// can register on the hub in between.
func (m *HubManager) dropIfEmpty(channel string, hub *Hub) {
	if hub.ClientCount() > 0 {
		return
	}
	delete(m.hubs, channel)
	m.logger.Debug("empty hub removed", slog.String("channel", channel))
}

// Publish sends ev to every subscriber of the channel. Channels nobody listens on are skipped.
func (m *HubManager) Publish(channel string, ev Event) {
	m.mu.RLock()
	hub := m.hubs[channel]
	m.mu.RUnlock()

	if hub != nil {
		hub.Broadcast(ev)
	}
}

// GetHub returns the hub for a channel, or nil if it doesn't exist
func (m *HubManager) GetHub(channel string) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[channel]
}

// ClientCount returns the number of subscribers on a channel
func (m *HubManager) ClientCount(channel string) int {
	if hub := m.GetHub(channel); hub != nil {
		return hub.ClientCount()
	}
	return 0
}

// HubCount returns the number of live hubs
func (m *HubManager) HubCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hubs)
}

// Close disconnects every client and drops all hubs
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clientCount := 0
	for channel, hub := range m.hubs {
		hub.mu.Lock()
		for client := range hub.clients {
			client.Close()
			delete(hub.clients, client)
			clientCount++
		}
		hub.mu.Unlock()
		delete(m.hubs, channel)
	}
	m.logger.Info("realtime hubs stopped", slog.Int("disconnected_subscriptions", clientCount))
}
