package diagnostics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notework/collab/internal/domain"
)

func TestScheduler_CoalescesMarks(t *testing.T) {
	var mu sync.Mutex
	checks := make(map[string]int)
	published := make(chan string, 10)

	sched := NewScheduler(30*time.Millisecond,
		func(path string) []domain.Diagnostic {
			mu.Lock()
			checks[path]++
			mu.Unlock()
			return nil
		},
		func(path string, diags []domain.Diagnostic) {
			published <- path
		})
	defer sched.Stop()

	// Many marks inside one debounce window produce one run per file
	sched.Mark("a.typ")
	sched.Mark("a.typ")
	sched.Mark("b.typ")
	sched.Mark("a.typ")

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case p := <-published:
			got[p] = true
		case <-time.After(time.Second):
			t.Fatal("publish never happened")
		}
	}
	assert.True(t, got["a.typ"] && got["b.typ"])

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, checks["a.typ"])
	assert.Equal(t, 1, checks["b.typ"])
}

func TestScheduler_MarkAfterFlushArmsAgain(t *testing.T) {
	published := make(chan string, 10)

	sched := NewScheduler(20*time.Millisecond,
		func(path string) []domain.Diagnostic { return nil },
		func(path string, diags []domain.Diagnostic) { published <- path })
	defer sched.Stop()

	sched.Mark("a.typ")
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("first flush never happened")
	}

	sched.Mark("a.typ")
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("second flush never happened")
	}
}

func TestScheduler_StopCancelsPendingFlush(t *testing.T) {
	published := make(chan string, 1)

	sched := NewScheduler(50*time.Millisecond,
		func(path string) []domain.Diagnostic { return nil },
		func(path string, diags []domain.Diagnostic) { published <- path })

	sched.Mark("a.typ")
	sched.Stop()

	select {
	case <-published:
		t.Fatal("flush ran after Stop")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestRunner_MissingCompiler(t *testing.T) {
	r := &Runner{bin: "", root: t.TempDir(), timeout: time.Second}
	require.False(t, r.Available())
	assert.Nil(t, r.Check(context.Background(), "doc.typ"))
}
