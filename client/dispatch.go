package client

import (
	"encoding/json"

	"github.com/notework/collab/internal/domain"
)

// dispatch decodes a server frame and invokes the matching handler. Unknown
// tags are dropped; the catalog may grow server-side first.
func (c *Client) dispatch(raw []byte) {
	var probe struct {
		Type domain.MessageType `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return
	}

	switch probe.Type {
	case domain.MessageTypeJoined:
		var m domain.JoinedMessage
		if json.Unmarshal(raw, &m) == nil && c.handlers.OnJoined != nil {
			c.handlers.OnJoined(m)
		}
	case domain.MessageTypeInit:
		var m domain.InitMessage
		if json.Unmarshal(raw, &m) == nil && c.handlers.OnInit != nil {
			c.handlers.OnInit(m)
		}
	case domain.MessageTypeContent:
		var m domain.ContentMessage
		if json.Unmarshal(raw, &m) == nil && c.handlers.OnContent != nil {
			c.handlers.OnContent(m)
		}
	case domain.MessageTypeCursor:
		var m domain.CursorMessage
		if json.Unmarshal(raw, &m) == nil && c.handlers.OnCursor != nil {
			c.handlers.OnCursor(m)
		}
	case domain.MessageTypeUserJoined, domain.MessageTypeUserUpdated:
		var m domain.PresenceMessage
		if json.Unmarshal(raw, &m) == nil && c.handlers.OnPresence != nil {
			c.handlers.OnPresence(m)
		}
	case domain.MessageTypeUserLeft:
		var m domain.UserLeftMessage
		if json.Unmarshal(raw, &m) == nil && c.handlers.OnUserLeft != nil {
			c.handlers.OnUserLeft(m)
		}
	case domain.MessageTypeChat:
		var m domain.ChatMessage
		if json.Unmarshal(raw, &m) == nil && c.handlers.OnChat != nil {
			c.handlers.OnChat(m)
		}
	case domain.MessageTypeDiagnostics:
		var m domain.DiagnosticsMessage
		if json.Unmarshal(raw, &m) == nil && c.handlers.OnDiagnostics != nil {
			c.handlers.OnDiagnostics(m)
		}
	case domain.MessageTypePreview:
		var m domain.PreviewMessage
		if json.Unmarshal(raw, &m) == nil && c.handlers.OnPreview != nil {
			c.handlers.OnPreview(m)
		}
	}
}
