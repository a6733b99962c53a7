package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	refreshTimeout = 30 * time.Second
)

// Client represents a WebSocket client connection
type Client struct {
	id     string
	conn   *websocket.Conn
	hub    *Hub
	logger zerolog.Logger

	sendChan  chan []byte
	closeChan chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new WebSocket client
func NewClient(id string, conn *websocket.Conn, hub *Hub, logger zerolog.Logger) *Client {
	return &Client{
		id:        id,
		conn:      conn,
		hub:       hub,
		logger:    logger,
		sendChan:  make(chan []byte, 256),
		closeChan: make(chan struct{}),
	}
}

// ID returns the client identifier
func (c *Client) ID() string {
	return c.id
}

// Run sends the current snapshots and then serves the connection until it closes
func (c *Client) Run(ctx context.Context) {
	if !c.hub.register(c) {
		c.Close()
		return
	}

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for _, st := range c.hub.source.Snapshots() {
		c.sendMessage(updateMessage(st))
	}

	go c.writePump(ctx)

	// Read loop (runs in current goroutine)
	c.readPump(ctx)
}

// readPump reads messages from the WebSocket connection
func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeChan:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("read error")
			}
			return
		}

		c.handleMessage(ctx, data)
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeChan:
			return
		case data := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming message
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var msg InMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendMessage(OutMessage{Type: TypeError, Error: "invalid message"})
		return
	}

	switch msg.Type {
	case TypeRefresh:
		c.logger.Debug().Str("view", msg.View).Msg("refresh requested")
		// The refreshed state reaches every client through the hub
		go func() {
			rctx, cancel := context.WithTimeout(ctx, refreshTimeout)
			defer cancel()
			if _, err := c.hub.source.Refresh(rctx, msg.View); err != nil {
				c.sendMessage(OutMessage{Type: TypeError, View: msg.View, Error: err.Error()})
			}
		}()
	default:
		c.sendMessage(OutMessage{Type: TypeError, Error: "unsupported message type '" + msg.Type + "'"})
	}
}

func (c *Client) sendMessage(msg OutMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to marshal message")
		return
	}
	c.send(data)
}

// send sends data to the client
func (c *Client) send(data []byte) {
	select {
	case c.sendChan <- data:
	case <-c.closeChan:
	default:
		// Channel full, drop message
		c.logger.Warn().Msg("send channel full, dropping message")
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		c.hub.unregister(c)
		c.conn.Close()
		c.logger.Debug().Msg("client closed")
	})
}
