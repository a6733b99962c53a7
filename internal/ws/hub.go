package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"somniadash/internal/dashboard"
)

// Hub fans dashboard updates out to every connected client
type Hub struct {
	source Source

	mu      sync.RWMutex
	clients map[string]*Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	logger zerolog.Logger
}

// NewHub creates a hub reading updates from source
func NewHub(source Source, logger zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		source:  source,
		clients: make(map[string]*Client),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With().Str("component", "ws").Logger(),
	}
}

// Start subscribes to the source and begins broadcasting
func (h *Hub) Start() {
	h.once.Do(func() {
		updates, unsubscribe := h.source.Subscribe()
		h.wg.Add(1)
		go h.run(updates, unsubscribe)
	})
}

// Stop ends broadcasting and disconnects every client
func (h *Hub) Stop() {
	h.cancel()
	h.wg.Wait()

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) run(updates <-chan dashboard.Update, unsubscribe func()) {
	defer h.wg.Done()
	defer unsubscribe()

	for {
		select {
		case <-h.ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			h.broadcast(updateMessage(u.State))
		}
	}
}

func (h *Hub) broadcast(msg OutMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("view", msg.View).Msg("failed to marshal update")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.send(data)
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
}
