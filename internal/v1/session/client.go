// Package session is the WebSocket edge of the game: it authenticates
// handshakes, owns one Client per live connection, decodes the JSON
// event envelope and routes events into the game registry. It is the
// only package that touches the wire; game logic never sees a socket.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clashdeck/backend/internal/v1/game"
	"github.com/clashdeck/backend/internal/v1/logging"
	"github.com/clashdeck/backend/internal/v1/metrics"
)

// wsConnection defines the interface for WebSocket connection operations.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
}

// Client represents one authenticated player's connection. The session
// id is server-assigned at handshake and dies with the connection.
type Client struct {
	conn wsConnection
	hub  *Hub
	sess game.Session

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	send chan []byte
}

// Session returns the identity bound to this connection.
func (c *Client) Session() game.Session {
	return c.sess
}

// Disconnect closes the send channel, which drives the writePump to
// flush, send a close frame and drop the connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.closeOnce.Do(func() { close(c.send) })
}

// readPump consumes inbound frames until the connection dies, then
// tears the session down. Cleanup runs exactly once from here, so a
// session's rooms are swept no matter how the connection ended.
func (c *Client) readPump() {
	defer func() {
		c.hub.handleDisconnect(c)
		_ = c.conn.Close()
		metrics.DecConnection()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		c.hub.dispatch(c, data)
	}
}

func (c *Client) writePump() {
	defer func() { _ = c.conn.Close() }()
	writeWait := 10 * time.Second

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logging.Error(context.Background(), "error writing message", zap.Error(err))
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// enqueue hands a pre-serialized frame to the writePump. Delivery is
// best effort: a closed client or a full buffer drops the frame rather
// than blocking the caller, which may hold the registry lock's caller
// path.
func (c *Client) enqueue(data []byte) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		logging.GetLogger().Debug("Skipping send to closed client", zap.String("sessionId", c.sess.ID))
		return
	}
	c.mu.RUnlock()

	// Safety net against the race between the closed check and a
	// concurrent Disconnect closing the channel.
	defer func() {
		if r := recover(); r != nil {
			logging.Warn(context.Background(), "Recovered from panic in enqueue",
				zap.String("sessionId", c.sess.ID), zap.Any("panic", r))
		}
	}()

	select {
	case c.send <- data:
	default:
		logging.Warn(context.Background(), "Client send channel full or closed",
			zap.String("sessionId", c.sess.ID))
	}
}
