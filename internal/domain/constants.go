package domain

import "time"

// ==== WebSocket Constants ====

// MaxMessageSize is the maximum allowed WebSocket frame size in bytes.
// Full-document snapshots travel over the wire, so this is generous.
const MaxMessageSize = 1 << 20

// ==== Timing Constants ====

const (
	// DiagnosticsDebounce is the quiet period after an edit before the
	// compiler is asked for fresh diagnostics.
	DiagnosticsDebounce = 500 * time.Millisecond

	// EditDebounce is the quiet period clients wait before sending a
	// coalesced full-content snapshot.
	EditDebounce = 150 * time.Millisecond

	// ReconnectBaseDelay is the first reconnect delay after an
	// involuntary disconnect.
	ReconnectBaseDelay = 2 * time.Second

	// ReconnectMaxDelay caps the exponential reconnect schedule.
	ReconnectMaxDelay = 30 * time.Second
)

// ==== Rate Limit Constants ====

const (
	// DefaultRateLimitAPI is the default rate limit for API endpoints
	// (requests/sec).
	DefaultRateLimitAPI = 10

	// DefaultRateLimitWS is the default rate limit for WebSocket
	// connection attempts (req/sec).
	DefaultRateLimitWS = 5
)

// UserColors is the palette assigned to users round-robin for cursor
// decorations and chat.
var UserColors = []string{
	"#FF6B6B", "#4ECDC4", "#FFE66D", "#95E1D3",
	"#F38181", "#AA96DA", "#FCBAD3", "#A8D8EA",
}
