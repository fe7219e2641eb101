// Package client is a headless Go client for the document collaboration
// channel. It keeps one connection for the whole visit, rejoins its active
// file after an involuntary disconnect, and coalesces edits the same way the
// browser editor does.
package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/notework/collab/internal/domain"
)

// Handlers are the application callbacks for server frames. Nil entries are
// skipped. Callbacks run on the connection's read goroutine.
type Handlers struct {
	OnJoined      func(domain.JoinedMessage)
	OnInit        func(domain.InitMessage)
	OnContent     func(domain.ContentMessage)
	OnCursor      func(domain.CursorMessage)
	OnPresence    func(domain.PresenceMessage)
	OnUserLeft    func(domain.UserLeftMessage)
	OnChat        func(domain.ChatMessage)
	OnDiagnostics func(domain.DiagnosticsMessage)
	OnPreview     func(domain.PreviewMessage)
}

// Client is a reconnecting collaboration client.
type Client struct {
	endpoint string
	name     string
	clientID string
	handlers Handlers

	mu         sync.Mutex
	conn       *websocket.Conn
	activeFile string

	editMu      sync.Mutex
	editTimer   *time.Timer
	pendingEdit *domain.Edit
}

// New creates a client for the ws endpoint (e.g. ws://host:8080/ws/doc).
// The clientID must be stable across reconnects; generate it once and cache
// it.
func New(endpoint, name, clientID string, handlers Handlers) *Client {
	return &Client{
		endpoint: endpoint,
		name:     name,
		clientID: clientID,
		handlers: handlers,
	}
}

// newReconnectBackOff builds the reconnect schedule: 2s doubling per
// attempt, capped at 30s, no jitter, never giving up.
func newReconnectBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = domain.ReconnectBaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = domain.ReconnectMaxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run connects and keeps the client connected until ctx is canceled. Each
// successful connect resets the backoff schedule and re-joins the active
// file; the server answers a rejoin exactly like a first join.
func (c *Client) Run(ctx context.Context) error {
	bo := newReconnectBackOff()

	for {
		if err := c.connect(ctx); err == nil {
			bo.Reset()
			c.readLoop()
		}

		select {
		case <-ctx.Done():
			c.close()
			return ctx.Err()
		case <-time.After(bo.NextBackOff()):
		}
	}
}

func (c *Client) connect(ctx context.Context) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	q := u.Query()
	q.Set("name", c.name)
	q.Set("id", c.clientID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	path := c.activeFile
	c.mu.Unlock()

	if path != "" {
		return c.writeJSON(map[string]interface{}{
			"type": domain.MessageTypeJoin,
			"path": path,
		})
	}
	return nil
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Join subscribes to a file. The server replies with a private init
// snapshot.
func (c *Client) Join(path string) error {
	c.mu.Lock()
	c.activeFile = path
	c.mu.Unlock()

	return c.writeJSON(map[string]interface{}{
		"type": domain.MessageTypeJoin,
		"path": path,
	})
}

// Edit queues a full-content replacement. Consecutive calls within the
// quiet period coalesce into one frame, so the server sees low-frequency
// snapshots rather than a keystroke stream.
func (c *Client) Edit(path, content string) {
	c.editMu.Lock()
	defer c.editMu.Unlock()

	c.pendingEdit = &domain.Edit{Path: path, Content: content}
	if c.editTimer == nil {
		c.editTimer = time.AfterFunc(domain.EditDebounce, c.flushEdit)
	} else {
		c.editTimer.Reset(domain.EditDebounce)
	}
}

func (c *Client) flushEdit() {
	c.editMu.Lock()
	edit := c.pendingEdit
	c.pendingEdit = nil
	c.editTimer = nil
	c.editMu.Unlock()

	if edit == nil {
		return
	}
	_ = c.writeJSON(map[string]interface{}{
		"type":    domain.MessageTypeEdit,
		"path":    edit.Path,
		"content": edit.Content,
	})
}

// Cursor reports the caret position in the active file.
func (c *Client) Cursor(line, column int) error {
	return c.writeJSON(map[string]interface{}{
		"type":   domain.MessageTypeCursor,
		"line":   line,
		"column": column,
	})
}

// Chat sends a chat line to every connected user.
func (c *Client) Chat(text string) error {
	return c.writeJSON(map[string]interface{}{
		"type":      domain.MessageTypeChat,
		"text":      text,
		"timestamp": time.Now().UnixMilli(),
	})
}

// Rename changes the display name.
func (c *Client) Rename(name string) error {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()

	return c.writeJSON(map[string]interface{}{
		"type": domain.MessageTypeIdentity,
		"name": name,
	})
}

func (c *Client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(v)
}

// readLoop dispatches server frames until the connection dies.
func (c *Client) readLoop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	defer func() {
		conn.Close()
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		c.dispatch(raw)
	}
}
