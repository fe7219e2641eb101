package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePageFile(t *testing.T) {
	tests := []struct {
		name string
		page int
		ok   bool
	}{
		{"page-1.svg", 1, true},
		{"page-12.svg", 12, true},
		{"page-0.svg", 0, false},
		{"page-.svg", 0, false},
		{"page-2.pdf", 0, false},
		{"cover.svg", 0, false},
		{"page-two.svg", 0, false},
	}

	for _, tc := range tests {
		page, ok := ParsePageFile(tc.name)
		assert.Equal(t, tc.ok, ok, tc.name)
		if tc.ok {
			assert.Equal(t, tc.page, page, tc.name)
		}
	}
}

func TestManager_DisabledWithoutCompiler(t *testing.T) {
	m := NewManager(t.TempDir(), t.TempDir(), "", nil)

	assert.NoError(t, m.Watch("doc.typ"))
	assert.Empty(t, m.Snapshot("doc.typ"))
	m.Unwatch("doc.typ")
	m.Stop()
}

func TestManager_SnapshotUnknownPath(t *testing.T) {
	m := NewManager(t.TempDir(), t.TempDir(), "", nil)
	assert.Nil(t, m.Snapshot("never-watched.typ"))
}
