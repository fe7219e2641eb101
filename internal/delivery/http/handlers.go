package http

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/notework/collab/internal/config"
	"github.com/notework/collab/internal/delivery/ws"
)

// isOriginAllowed checks if the origin is in the allowed list
func isOriginAllowed(origin string) bool {
	// Empty origin is allowed (same-origin requests)
	if origin == "" {
		return true
	}

	for _, allowed := range config.AppConfig.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	return false
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return isOriginAllowed(origin)
	},
}

var (
	htmlTagRegex     = regexp.MustCompile(`<[^>]*>`)
	controlCharRegex = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	clientIDRegex    = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
)

// sanitizeName cleans a client-supplied display name.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	if utf8.RuneCountInString(name) > 50 {
		runes := []rune(name)
		name = string(runes[:50])
	}

	name = htmlTagRegex.ReplaceAllString(name, "")
	name = controlCharRegex.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	if name == "" {
		name = "Anonymous"
	}
	return name
}

type Handler struct {
	hub *ws.Hub
}

func NewHandler(hub *ws.Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleDocSocket upgrades the connection for the document channel. The URL
// carries the display name and the persistent client identifier; a client
// that presents none gets a throwaway identity for this connection only.
func (h *Handler) HandleDocSocket(w http.ResponseWriter, r *http.Request) {
	name := sanitizeName(r.URL.Query().Get("name"))

	clientID := r.URL.Query().Get("id")
	if !clientIDRegex.MatchString(clientID) {
		clientID = uuid.New().String()[:8]
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	user := h.hub.ResolveUser(clientID, name)
	client := ws.NewClient(h.hub, conn, user)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// HandleHealth reports liveness plus a couple of gauges.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"users":    h.hub.ClientCount(),
		"sessions": h.hub.SessionCount(),
	})
}

// HandleUsers returns the global online-user roster.
func (h *Handler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.hub.Roster())
}
