package domain

// User is a logical identity that survives reconnects within a session
// lifetime. It is keyed by the persistent client identifier the browser
// generates once and sends on every connect.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	CurrentFile string `json:"file,omitempty"`

	// Last known caret position, kept for cross-file jump-to-user.
	CursorLine   int `json:"-"`
	CursorColumn int `json:"-"`
}

// NewUser creates a user with the given identity and an initial cursor at
// the top of the document.
func NewUser(id, name, color string) *User {
	return &User{
		ID:           id,
		Name:         name,
		Color:        color,
		CursorLine:   1,
		CursorColumn: 1,
	}
}

// UserInfo is the roster entry shape sent in joined and presence frames.
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	File  string `json:"file,omitempty"`
}

// Info returns the user's roster entry.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:    u.ID,
		Name:  u.Name,
		Color: u.Color,
		File:  u.CurrentFile,
	}
}
