package ws

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/notework/collab/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// Client is one WebSocket connection. Its ID is the persistent client
// identifier, so a reconnect produces a new Client with the same ID.
type Client struct {
	ID   string
	User *domain.User
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closed atomic.Bool
}

// NewClient creates a client for an accepted connection.
func NewClient(hub *Hub, conn *websocket.Conn, user *domain.User) *Client {
	return &Client{
		ID:   user.ID,
		User: user,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// trySend queues a frame without blocking. A peer that cannot drain its
// buffer gets its connection closed; cleanup then runs through the normal
// unregister path.
func (c *Client) trySend(data []byte) {
	if c.closed.Load() {
		return
	}
	select {
	case c.send <- data:
	default:
		c.closeQuietly()
	}
}

// closeQuietly tears the socket down without touching hub state. The send
// channel stays open so concurrent broadcasts never hit a closed channel;
// the write pump drains out on its next conn error.
func (c *Client) closeQuietly() {
	if c.closed.Swap(true) {
		return
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// ReadPump pumps frames from the connection into the hub. It owns the
// connection's read side and runs until the socket dies, at which point the
// client is unregistered and its subscriptions released.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		if c.conn != nil {
			c.conn.Close()
		}
	}()

	c.conn.SetReadLimit(domain.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		msg, err := domain.DecodeInbound(raw)
		if err != nil {
			// Malformed frame; connection-level failures are the
			// client's problem to resolve by reconnecting.
			continue
		}

		switch m := msg.(type) {
		case domain.Join:
			c.hub.JoinFile(c, m.Path)
		case domain.Edit:
			c.hub.ApplyEdit(c, m.Path, m.Content)
		case domain.Cursor:
			c.hub.MoveCursor(c, m.Line, m.Column)
		case domain.Identity:
			c.hub.Rename(c, m.Name)
		case domain.Chat:
			c.hub.ChatRelay(c, m.Text, m.Timestamp)
		case domain.Unknown:
			// Not fatal; newer clients may speak a larger catalog.
		}
	}
}

// WritePump pumps queued frames to the connection and keeps it alive with
// pings. One frame per WebSocket message.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
