package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome int

const (
	fail outcome = iota
	succeed
)

func replay(b *Breaker, outcomes ...outcome) {
	for _, o := range outcomes {
		if o == fail {
			b.RecordFailure()
		} else {
			b.RecordSuccess()
		}
	}
}

func TestBreakerStartsClosed(t *testing.T) {
	b := New("audit-broker")
	assert.Equal(t, "audit-broker", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.IsOpen())
}

func TestBreakerThresholds(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		recovery int
		outcomes []outcome
		wantOpen bool
	}{
		{"below failure threshold", 3, 1, []outcome{fail, fail}, false},
		{"reaches failure threshold", 3, 1, []outcome{fail, fail, fail}, true},
		{"success clears failure streak", 3, 1, []outcome{fail, fail, succeed, fail, fail}, false},
		{"streak rebuilt after reset", 3, 1, []outcome{fail, fail, succeed, fail, fail, fail}, true},
		{"open until recovery threshold", 1, 2, []outcome{fail, succeed}, true},
		{"closes at recovery threshold", 1, 2, []outcome{fail, succeed, succeed}, false},
		{"failure while open restarts recovery", 1, 3, []outcome{fail, succeed, succeed, fail, succeed, succeed}, true},
		{"recovers after restart", 1, 3, []outcome{fail, succeed, succeed, fail, succeed, succeed, succeed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("audit-broker", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.recovery))
			replay(b, tt.outcomes...)
			assert.Equal(t, tt.wantOpen, b.IsOpen())
		})
	}
}

func TestBreakerReportsTransitionsOnce(t *testing.T) {
	b := New("audit-broker", WithFailureThreshold(2))

	fallback, change := b.RecordFailure()
	assert.False(t, fallback)
	assert.Equal(t, StateChange{}, change)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback)
	assert.False(t, change.Opened, "already open")

	primary, change := b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
}

func TestBreakerReset(t *testing.T) {
	b := New("audit-broker", WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerAllowsTrialAfterCooldown(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	b := New("audit-broker", WithFailureThreshold(2), WithCooldown(time.Minute), WithClock(func() time.Time { return now }))

	assert.True(t, b.Allow())
	replay(b, fail, fail)
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	assert.True(t, b.Allow(), "one trial call after the cooldown")
	assert.False(t, b.Allow(), "second call waits for the next cooldown")

	_, change := b.RecordSuccess()
	assert.True(t, change.Closed)
	assert.True(t, b.Allow())
}
