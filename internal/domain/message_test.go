package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Inbound
	}{
		{
			name: "join",
			raw:  `{"type":"join","path":"content/1/2.typ"}`,
			want: Join{Path: "content/1/2.typ"},
		},
		{
			name: "edit",
			raw:  `{"type":"edit","path":"doc.typ","content":"= Title"}`,
			want: Edit{Path: "doc.typ", Content: "= Title"},
		},
		{
			name: "cursor",
			raw:  `{"type":"cursor","line":14,"column":7}`,
			want: Cursor{Line: 14, Column: 7},
		},
		{
			name: "identity",
			raw:  `{"type":"identity","name":"Alice"}`,
			want: Identity{Name: "Alice"},
		},
		{
			name: "chat",
			raw:  `{"type":"chat","text":"hi","timestamp":1700000000000}`,
			want: Chat{Text: "hi", Timestamp: 1700000000000},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeInbound_UnknownTypeIsExplicit(t *testing.T) {
	got, err := DecodeInbound([]byte(`{"type":"telemetry","data":42}`))
	require.NoError(t, err)
	assert.Equal(t, Unknown{Type: "telemetry"}, got)
}

func TestDecodeInbound_MalformedFrame(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestOutboundFrameShapes(t *testing.T) {
	data := Encode(CursorMessage{
		Type:   MessageTypeCursor,
		UserID: "u1",
		Name:   "Alice",
		Color:  "#FF6B6B",
		Line:   3,
		Column: 9,
	})

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "cursor", m["type"])
	assert.Equal(t, "u1", m["userId"])
	assert.EqualValues(t, 3, m["line"])
	assert.EqualValues(t, 9, m["column"])
}

func TestDiagnosticsMessage_EmptyListStaysList(t *testing.T) {
	// An empty set must serialize as [] so clients clear markers
	data := Encode(DiagnosticsMessage{
		Type:        MessageTypeDiagnostics,
		Diagnostics: []Diagnostic{},
	})
	assert.JSONEq(t, `{"type":"diagnostics","diagnostics":[]}`, string(data))
}

func TestUserInfo_OmitsEmptyFile(t *testing.T) {
	u := NewUser("u1", "Alice", "#FF6B6B")
	data, err := json.Marshal(u.Info())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "file")

	u.CurrentFile = "doc.typ"
	data, err = json.Marshal(u.Info())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"file":"doc.typ"`)
}
