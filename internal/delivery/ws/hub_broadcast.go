package ws

import (
	"github.com/notework/collab/internal/domain"
)

// broadcastAll sends data to every connected client except excludeID.
// Sends are fire-and-forget: a peer whose buffer is full gets its connection
// closed rather than stalling everyone else.
func (h *Hub) broadcastAll(data []byte, excludeID string) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for id, c := range h.clients {
		if id == excludeID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.trySend(data)
	}
}

// rosterLocked builds the global online-user list. Caller holds h.mu.
func (h *Hub) rosterLocked() []domain.UserInfo {
	users := make([]domain.UserInfo, 0, len(h.clients))
	for _, c := range h.clients {
		users = append(users, c.User.Info())
	}
	return users
}

// Roster returns the current online-user list.
func (h *Hub) Roster() []domain.UserInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rosterLocked()
}
