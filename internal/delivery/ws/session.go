package ws

import (
	"sync"

	"github.com/notework/collab/internal/domain"
)

// FileSession holds the authoritative state for one open file path plus its
// current subscriber set. At most one session exists per path; it is created
// lazily on first join and retired when the last subscriber leaves.
//
// The session guards its own state so a slow broadcast on one file never
// blocks edits or presence elsewhere. Lock ordering: the hub lock is never
// taken while a session lock is held.
type FileSession struct {
	path string

	mu          sync.RWMutex
	content     string
	version     int
	diagnostics []domain.Diagnostic
	subscribers map[string]*Client
}

func newFileSession(path, content string) *FileSession {
	return &FileSession{
		path:        path,
		content:     content,
		subscribers: make(map[string]*Client),
	}
}

// Apply overwrites the authoritative content. Last writer wins at the
// granularity of the full snapshot; there is deliberately no merging.
func (s *FileSession) Apply(content string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = content
	s.version++
	return s.version
}

// Snapshot returns the current content and version.
func (s *FileSession) Snapshot() (string, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content, s.version
}

// SetDiagnostics replaces the cached diagnostic set wholesale.
func (s *FileSession) SetDiagnostics(diags []domain.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = diags
}

// Diagnostics returns the cached diagnostic set.
func (s *FileSession) Diagnostics() []domain.Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.diagnostics
}

// addSubscriber registers c and reports whether its id is a new entry in
// the set. Side effects keyed on subscription lifetime (the preview watch)
// hang off that transition, not off the raw call.
func (s *FileSession) addSubscriber(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.subscribers[c.ID]
	s.subscribers[c.ID] = c
	return !exists
}

// removeSubscriber drops c, reporting whether it actually held a
// subscription and whether the set is now empty. Only the exact client is
// removed, so a superseded connection cannot evict its replacement.
func (s *FileSession) removeSubscriber(c *Client) (removed, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribers[c.ID] == c {
		delete(s.subscribers, c.ID)
		removed = true
	}
	return removed, len(s.subscribers) == 0
}

// forEachSubscriber calls fn for every subscriber except excludeID.
func (s *FileSession) forEachSubscriber(excludeID string, fn func(*Client)) {
	s.mu.RLock()
	targets := make([]*Client, 0, len(s.subscribers))
	for id, c := range s.subscribers {
		if id == excludeID {
			continue
		}
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	for _, c := range targets {
		fn(c)
	}
}

// SubscriberCount returns the number of current subscribers.
func (s *FileSession) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}
