package ws

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/notework/collab/internal/domain"
	"github.com/notework/collab/internal/storage"
)

// DiagnosticsScheduler marks a file dirty for a debounced compiler run.
type DiagnosticsScheduler interface {
	Mark(path string)
}

// PreviewManager renders open files and replays cached pages.
type PreviewManager interface {
	Watch(path string) error
	Unwatch(path string)
	Snapshot(path string) []domain.PageUpdate
}

// Hub owns every connected client, the global presence table, and the set of
// open file sessions. Presence and chat fan out process-wide; content,
// cursor, diagnostics and preview fan out only to the subscribers of the
// shared file. The asymmetry is deliberate: the online-user list powers
// jump-to-user across files.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	colorIndex int

	smu      sync.RWMutex
	sessions map[string]*FileSession

	register   chan *Client
	unregister chan *Client

	store storage.FileStore
	diag  DiagnosticsScheduler
	prev  PreviewManager
}

// NewHub creates a hub over the given backing store.
func NewHub(store storage.FileStore) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		sessions:   make(map[string]*FileSession),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		store:      store,
	}
}

// SetDiagnostics wires the debounced diagnostics scheduler.
func (h *Hub) SetDiagnostics(d DiagnosticsScheduler) {
	h.diag = d
}

// SetPreview wires the preview manager.
func (h *Hub) SetPreview(p PreviewManager) {
	h.prev = p
}

// previewable reports whether path gets diagnostics and preview rendering.
func previewable(path string) bool {
	return strings.HasSuffix(path, ".typ")
}

// nextColor hands out palette colors round-robin. Caller holds h.mu.
func (h *Hub) nextColor() string {
	color := domain.UserColors[h.colorIndex%len(domain.UserColors)]
	h.colorIndex++
	return color
}

// Run is the hub's lifecycle loop. Register and unregister are funneled
// through channels so the presence table has a single mutation authority.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()

	old := h.clients[client.ID]
	h.clients[client.ID] = client

	handshake := domain.Encode(domain.JoinedMessage{
		Type:   domain.MessageTypeJoined,
		UserID: client.User.ID,
		Color:  client.User.Color,
		Users:  h.rosterLocked(),
	})
	var presence []byte
	if old != nil {
		presence = domain.Encode(domain.PresenceMessage{
			Type: domain.MessageTypeUserUpdated,
			User: client.User.Info(),
		})
	} else {
		presence = domain.Encode(domain.PresenceMessage{
			Type: domain.MessageTypeUserJoined,
			User: client.User.Info(),
		})
	}
	oldPath := ""
	if old != nil {
		oldPath = old.User.CurrentFile
	}
	h.mu.Unlock()

	if old != nil {
		// Same identifier reconnected while the stale socket was
		// still around. The new connection supersedes it: the stale
		// pumps exit once the conn closes, their unregister is a
		// no-op because the table no longer points at them, and the
		// stale subscription is released here since the usual
		// unregister path will skip it. The client re-sends join
		// right after the handshake.
		old.closeQuietly()
		if oldPath != "" {
			h.leaveSession(old, oldPath)
		}
	}

	client.trySend(handshake)
	if old != nil {
		// Everyone's roster converges on the updated entry, the
		// reconnecting user's own included.
		h.broadcastAll(presence, "")
	} else {
		h.broadcastAll(presence, client.ID)
	}
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	if h.clients[client.ID] != client {
		// Already superseded or unregistered.
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	path := client.User.CurrentFile
	h.mu.Unlock()

	client.closeQuietly()
	if path != "" {
		h.leaveSession(client, path)
	}

	h.broadcastAll(domain.Encode(domain.UserLeftMessage{
		Type:   domain.MessageTypeUserLeft,
		UserID: client.ID,
	}), client.ID)
}

// ResolveUser returns the identity for a connecting client. A live
// connection with the same identifier lends its user record so name and
// color survive the socket swap; otherwise a fresh record gets the next
// palette color.
func (h *Hub) ResolveUser(id, name string) *domain.User {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[id]; ok {
		existing.User.Name = name
		return existing.User
	}
	return domain.NewUser(id, name, h.nextColor())
}

// JoinFile subscribes client to path: the session is created lazily with
// content from the backing store, the joining connection alone receives the
// init snapshot, and everyone else learns about the file switch.
func (h *Hub) JoinFile(client *Client, path string) {
	if path == "" {
		return
	}

	h.mu.Lock()
	oldPath := client.User.CurrentFile
	client.User.CurrentFile = path
	presence := domain.Encode(domain.PresenceMessage{
		Type: domain.MessageTypeUserUpdated,
		User: client.User.Info(),
	})
	h.mu.Unlock()

	if oldPath != "" && oldPath != path {
		h.leaveSession(client, oldPath)
	}

	sess := h.session(path)
	added := sess.addSubscriber(client)

	content, version := sess.Snapshot()
	client.trySend(domain.Encode(domain.InitMessage{
		Type:    domain.MessageTypeInit,
		Content: content,
		Version: version,
	}))

	// A rejoin after reconnect gets the same fresh snapshot a first join
	// does; cached diagnostics are replayed so markers reappear without
	// waiting for the next edit.
	if diags := sess.Diagnostics(); len(diags) > 0 {
		client.trySend(domain.Encode(domain.DiagnosticsMessage{
			Type:        domain.MessageTypeDiagnostics,
			Diagnostics: diags,
		}))
	}

	// The watch ref-count follows the subscriber set: a rejoin after a
	// reconnect-supersede re-acquires a subscription (the stale one was
	// released) and must re-acquire the watch with it.
	if h.prev != nil && previewable(path) && added {
		if err := h.prev.Watch(path); err != nil {
			log.Printf("hub: preview watch %s: %v", path, err)
		} else {
			go h.replayPreview(client, path)
		}
	}

	h.broadcastAll(presence, client.ID)
}

// replayPreview sends cached pages to a joining subscriber, polling briefly
// because the first compile may still be running.
func (h *Hub) replayPreview(client *Client, path string) {
	for i := 0; i < 10; i++ {
		time.Sleep(200 * time.Millisecond)
		if updates := h.prev.Snapshot(path); len(updates) > 0 {
			client.trySend(domain.Encode(domain.PreviewMessage{
				Type:    domain.MessageTypePreview,
				Updates: updates,
			}))
			return
		}
	}
}

// session returns the FileSession for path, creating it from the backing
// store on first join.
func (h *Hub) session(path string) *FileSession {
	h.smu.RLock()
	sess, ok := h.sessions[path]
	h.smu.RUnlock()
	if ok {
		return sess
	}

	h.smu.Lock()
	defer h.smu.Unlock()
	if sess, ok := h.sessions[path]; ok {
		return sess
	}
	content, err := h.store.Load(path)
	if err != nil {
		log.Printf("hub: load %s: %v", path, err)
		content = ""
	}
	sess = newFileSession(path, content)
	h.sessions[path] = sess
	return sess
}

// lookupSession returns the session for path if one is open.
func (h *Hub) lookupSession(path string) *FileSession {
	h.smu.RLock()
	defer h.smu.RUnlock()
	return h.sessions[path]
}

// leaveSession removes client from the session for path and retires the
// session once its subscriber set empties. Content was persisted on every
// edit, so dropping the in-memory copy loses nothing.
func (h *Hub) leaveSession(client *Client, path string) {
	sess := h.lookupSession(path)
	if sess == nil {
		return
	}
	removed, empty := sess.removeSubscriber(client)
	if removed && h.prev != nil && previewable(path) {
		h.prev.Unwatch(path)
	}
	if !empty {
		return
	}

	h.smu.Lock()
	if s, ok := h.sessions[path]; ok && s == sess && s.SubscriberCount() == 0 {
		delete(h.sessions, path)
	}
	h.smu.Unlock()
}

// ApplyEdit overwrites the authoritative content of path with a full
// snapshot, persists it, and fans the new content out to every other
// subscriber. Edits for files without an open session are dropped.
func (h *Hub) ApplyEdit(client *Client, path, content string) {
	sess := h.lookupSession(path)
	if sess == nil {
		return
	}

	version := sess.Apply(content)

	// A store failure must not disturb the snapshot already applied and
	// about to be broadcast; there is no ack path to report it anyway.
	if err := h.store.Save(path, content); err != nil {
		log.Printf("hub: save %s: %v", path, err)
	}

	data := domain.Encode(domain.ContentMessage{
		Type:    domain.MessageTypeContent,
		Content: content,
		Version: version,
		UserID:  client.ID,
	})
	sess.forEachSubscriber(client.ID, func(c *Client) {
		c.trySend(data)
	})

	if h.diag != nil && previewable(path) {
		h.diag.Mark(path)
	}
}

// MoveCursor records the sender's caret and fans it out to the other
// subscribers of its current file. Receivers replace the previous position
// for that user id, so resends are idempotent.
func (h *Hub) MoveCursor(client *Client, line, column int) {
	h.mu.Lock()
	client.User.CursorLine = line
	client.User.CursorColumn = column
	path := client.User.CurrentFile
	data := domain.Encode(domain.CursorMessage{
		Type:   domain.MessageTypeCursor,
		UserID: client.User.ID,
		Name:   client.User.Name,
		Color:  client.User.Color,
		Line:   line,
		Column: column,
	})
	h.mu.Unlock()

	if path == "" {
		return
	}
	sess := h.lookupSession(path)
	if sess == nil {
		return
	}
	sess.forEachSubscriber(client.ID, func(c *Client) {
		c.trySend(data)
	})
}

// Rename updates the sender's display name and announces it to everyone,
// sender included, so every roster converges on the same name.
func (h *Hub) Rename(client *Client, name string) {
	if name == "" {
		return
	}
	h.mu.Lock()
	client.User.Name = name
	data := domain.Encode(domain.PresenceMessage{
		Type: domain.MessageTypeUserUpdated,
		User: client.User.Info(),
	})
	h.mu.Unlock()

	h.broadcastAll(data, "")
}

// ChatRelay fans a chat line out to every connected user, sender included.
// Nothing is stored: a user disconnected during the gap misses it for good.
func (h *Hub) ChatRelay(client *Client, text string, timestamp int64) {
	h.mu.RLock()
	data := domain.Encode(domain.ChatMessage{
		Type:      domain.MessageTypeChat,
		UserID:    client.User.ID,
		Name:      client.User.Name,
		Color:     client.User.Color,
		Text:      text,
		Timestamp: timestamp,
	})
	h.mu.RUnlock()

	h.broadcastAll(data, "")
}

// PublishDiagnostics caches and fans out a finished diagnostic set for
// path. The set replaces whatever the receivers had, including replacing
// with nothing.
func (h *Hub) PublishDiagnostics(path string, diags []domain.Diagnostic) {
	sess := h.lookupSession(path)
	if sess == nil {
		return
	}
	sess.SetDiagnostics(diags)

	if diags == nil {
		diags = []domain.Diagnostic{}
	}
	data := domain.Encode(domain.DiagnosticsMessage{
		Type:        domain.MessageTypeDiagnostics,
		Diagnostics: diags,
	})
	sess.forEachSubscriber("", func(c *Client) {
		c.trySend(data)
	})
}

// PublishPreview fans freshly rendered pages out to path's subscribers.
func (h *Hub) PublishPreview(path string, updates []domain.PageUpdate) {
	sess := h.lookupSession(path)
	if sess == nil || len(updates) == 0 {
		return
	}
	data := domain.Encode(domain.PreviewMessage{
		Type:    domain.MessageTypePreview,
		Updates: updates,
	})
	sess.forEachSubscriber("", func(c *Client) {
		c.trySend(data)
	})
}
