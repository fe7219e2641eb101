package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType is the wire discriminator carried in every frame's "type" field.
type MessageType string

const (
	// Client to server
	MessageTypeJoin     MessageType = "join"
	MessageTypeEdit     MessageType = "edit"
	MessageTypeIdentity MessageType = "identity"

	// Both directions
	MessageTypeCursor MessageType = "cursor"
	MessageTypeChat   MessageType = "chat"

	// Server to client
	MessageTypeInit        MessageType = "init"
	MessageTypeContent     MessageType = "content"
	MessageTypeJoined      MessageType = "joined"
	MessageTypeUserJoined  MessageType = "user_joined"
	MessageTypeUserLeft    MessageType = "user_left"
	MessageTypeUserUpdated MessageType = "user_updated"
	MessageTypeDiagnostics MessageType = "diagnostics"
	MessageTypePreview     MessageType = "preview"
)

// Inbound is the closed set of frames a client may send. Decoding produces
// exactly one of the concrete types below; anything unrecognized decodes to
// Unknown so the caller handles it as an explicit case instead of a silent
// fallthrough.
type Inbound interface {
	isInbound()
}

// Join subscribes the sender to a file and requests a snapshot.
type Join struct {
	Path string `json:"path"`
}

// Edit replaces the full content of a file. Clients coalesce keystrokes and
// send one of these after a quiet period, never a character stream.
type Edit struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Cursor reports the sender's caret position in its current file.
type Cursor struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Identity renames the sender.
type Identity struct {
	Name string `json:"name"`
}

// Chat relays a message to every connected user.
type Chat struct {
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Unknown carries the raw tag of a frame the server does not understand.
type Unknown struct {
	Type string
}

func (Join) isInbound()     {}
func (Edit) isInbound()     {}
func (Cursor) isInbound()   {}
func (Identity) isInbound() {}
func (Chat) isInbound()     {}
func (Unknown) isInbound()  {}

// DecodeInbound parses a raw frame into its typed variant. A malformed frame
// returns an error; a well-formed frame with an unrecognized tag returns
// Unknown and no error.
func DecodeInbound(data []byte) (Inbound, error) {
	var probe struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch probe.Type {
	case MessageTypeJoin:
		var m Join
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode join: %w", err)
		}
		return m, nil
	case MessageTypeEdit:
		var m Edit
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode edit: %w", err)
		}
		return m, nil
	case MessageTypeCursor:
		var m Cursor
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode cursor: %w", err)
		}
		return m, nil
	case MessageTypeIdentity:
		var m Identity
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode identity: %w", err)
		}
		return m, nil
	case MessageTypeChat:
		var m Chat
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode chat: %w", err)
		}
		return m, nil
	default:
		return Unknown{Type: string(probe.Type)}, nil
	}
}

// ==== Server-to-client frames ====

// JoinedMessage is the handshake result sent once to a new connection.
type JoinedMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId"`
	Color  string      `json:"color"`
	Users  []UserInfo  `json:"users"`
}

// InitMessage is the authoritative snapshot sent privately after a join.
type InitMessage struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
	Version int         `json:"version"`
}

// ContentMessage carries the latest snapshot to the other subscribers of a
// file. Never echoed back to the sender.
type ContentMessage struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
	Version int         `json:"version"`
	UserID  string      `json:"userId"`
}

// CursorMessage is a remote cursor update tagged with sender identity.
type CursorMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId"`
	Name   string      `json:"name"`
	Color  string      `json:"color"`
	Line   int         `json:"line"`
	Column int         `json:"column"`
}

// PresenceMessage announces user_joined and user_updated transitions.
type PresenceMessage struct {
	Type MessageType `json:"type"`
	User UserInfo    `json:"user"`
}

// UserLeftMessage announces a disconnect.
type UserLeftMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId"`
}

// ChatMessage is a relayed chat line tagged with sender identity.
type ChatMessage struct {
	Type      MessageType `json:"type"`
	UserID    string      `json:"userId"`
	Name      string      `json:"name"`
	Color     string      `json:"color"`
	Text      string      `json:"text"`
	Timestamp int64       `json:"timestamp"`
}

// Diagnostic is one compiler finding. The list for a file always replaces
// the previous one wholesale.
type Diagnostic struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

// DiagnosticsMessage replaces all markers for the receiver's active file.
type DiagnosticsMessage struct {
	Type        MessageType  `json:"type"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// PageUpdate is one freshly rendered preview page.
type PageUpdate struct {
	Page int    `json:"page"`
	SVG  string `json:"svg"`
}

// PreviewMessage streams rendered pages to a file's subscribers.
type PreviewMessage struct {
	Type    MessageType  `json:"type"`
	Updates []PageUpdate `json:"updates"`
}

// Encode marshals an outbound frame. The shapes above cannot fail to
// marshal, so the error is dropped to keep broadcast paths simple.
func Encode(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}
