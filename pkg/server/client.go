package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// WebSocket timeouts, following the gorilla chat example.
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Inbound messages are small commands
	maxMessageSize = 64 * 1024

	sendBuffer = 32
)

// inbound is a command sent by a subscriber. The only command is "toggle",
// the WebSocket form of the node right-click.
type inbound struct {
	Type string `json:"type"`
	Node string `json:"node"`
}

// client is one WebSocket connection bound to a view.
type client struct {
	server *Server
	conn   *websocket.Conn
	send   chan Message
	viewID string
	graph  string
	logger *log.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(s *Server, conn *websocket.Conn, viewID, graphName string) *client {
	return &client{
		server: s,
		conn:   conn,
		send:   make(chan Message, sendBuffer),
		viewID: viewID,
		graph:  graphName,
		logger: s.logger.With("view", viewID),
		done:   make(chan struct{}),
	}
}

// enqueue never blocks; a client that cannot keep up is dropped.
func (c *client) enqueue(m Message) {
	select {
	case <-c.done:
	case c.send <- m:
	default:
		c.logger.Warn("Dropping slow subscriber")
		go c.server.hub.unregister(c)
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump handles inbound commands until the connection fails.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.server.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				c.logger.Warn("WebSocket read error", "err", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("Ignoring malformed message", "err", err)
			continue
		}
		switch msg.Type {
		case "toggle":
			// Success is pushed to every subscriber by the toggle itself.
			if _, _, err := c.server.toggle(ctx, c.viewID, msg.Node); err != nil {
				c.enqueue(errorMessage(err))
			}
		case "ping":
		default:
			c.logger.Debug("Unknown message type", "type", msg.Type)
		}
	}
}

// writePump delivers queued messages and keeps the connection alive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case m := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(m); err != nil {
				c.logger.Debug("WebSocket write error", "err", err)
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
