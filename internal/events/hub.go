package events

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/ent0n29/deskmate/internal/logger"
	"github.com/ent0n29/deskmate/internal/observability"
	"github.com/ent0n29/deskmate/internal/protocol"
)

var log = logger.New("events")

const defaultBuffer = 64

// Client is one registered control surface connection.
type Client struct {
	ID   string
	send chan []byte
}

// Messages yields encoded frames until the client is unregistered.
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// Hub fans server events out to every connected client. A client whose
// buffer is full is dropped rather than blocking the sender.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	buffer  int
	metrics *observability.Metrics
}

func NewHub(metrics *observability.Metrics) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		buffer:  defaultBuffer,
		metrics: metrics,
	}
}

func (h *Hub) Register() *Client {
	c := &Client{
		ID:   uuid.NewString(),
		send: make(chan []byte, h.buffer),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetClients(n)
	log.Debug().Str("client_id", c.ID).Int("clients", n).Msg("Client registered")
	return c
}

// Unregister removes the client and closes its channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.metrics.SetClients(n)
		log.Debug().Str("client_id", c.ID).Int("clients", n).Msg("Client unregistered")
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers msg to every client.
func (h *Hub) Broadcast(msg protocol.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Err(err).Str("event", string(msg.Event)).Msg("Failed to encode broadcast")
		return
	}

	var stale []*Client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
			h.metrics.ObserveMessage("out", string(msg.Event))
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		log.Warn().Str("client_id", c.ID).Msg("Client buffer full, dropping")
		h.Unregister(c)
	}
}

// Send delivers msg to a single client and reports whether it was queued.
func (h *Hub) Send(c *Client, msg protocol.ServerMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Err(err).Str("event", string(msg.Event)).Msg("Failed to encode message")
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		h.metrics.ObserveMessage("out", string(msg.Event))
		return true
	default:
		return false
	}
}
