package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectBackOffSchedule(t *testing.T) {
	bo := newReconnectBackOff()

	// Attempts 0..3 double from 2s; attempt 4 onward caps at 30s
	want := []time.Duration{
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		30000 * time.Millisecond,
		30000 * time.Millisecond,
		30000 * time.Millisecond,
	}

	for attempt, expected := range want {
		assert.Equal(t, expected, bo.NextBackOff(), "attempt %d", attempt)
	}
}

func TestReconnectBackOffResetsAfterSuccess(t *testing.T) {
	bo := nextAfterReset()
	assert.Equal(t, 2*time.Second, bo)
}

func nextAfterReset() time.Duration {
	bo := newReconnectBackOff()
	bo.NextBackOff()
	bo.NextBackOff()
	bo.Reset()
	return bo.NextBackOff()
}
