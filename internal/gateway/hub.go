package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crypto-analyst/internal/metrics"
)

// Hub manages WebSocket clients and the latest payload per channel.
// It acts as a compositor, delegating to focused components:
//   - Broadcaster: envelope construction + fan-out
//   - PubSubRouter: Redis subscription feeding the Broadcaster
//
// Hub implements model.Publisher for the in-process path.
type Hub struct {
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64

	// Per-channel monotonic sequence numbers for gap detection
	channelSeqs map[string]int64

	Broadcaster *Broadcaster
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
	Seq  int64 // per-channel seq
}

// NewHub creates a Hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	h := &Hub{
		metrics:     m,
		clients:     make(map[*Client]bool),
		latest:      make(map[string]latestEntry),
		channelSeqs: make(map[string]int64),
	}
	h.Broadcaster = NewBroadcaster(h)
	return h
}

// Publish implements model.Publisher by broadcasting to local clients.
func (h *Hub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.Broadcaster.Broadcast(channel, payload)
	return nil
}

// HandleWSRequest registers an upgraded connection. Channels updated after
// lastTS (RFC3339Nano, optional) are replayed from the latest snapshot.
func (h *Hub) HandleWSRequest(conn *websocket.Conn, lastTS string) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}

	conn.EnableWriteCompression(true)

	// Registration and the initial snapshot are atomic so every later
	// broadcast lands after the snapshot in the client's queue.
	h.mu.Lock()
	h.clients[client] = true
	client.queueInitialState(lastTS)
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetWSClients(count)
	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetWSClients(count)
}

// Latest returns the last payload seen on channel.
func (h *Hub) Latest(channel string) (json.RawMessage, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.latest[channel]
	return e.Data, ok
}

// GetChannelSeq returns the current sequence number for a channel.
func (h *Hub) GetChannelSeq(channel string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channelSeqs[channel]
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.conn.Close()
	}
}
