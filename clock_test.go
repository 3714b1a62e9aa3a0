package recur

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClockInstantAdvances(t *testing.T) {
	a := SystemClock{}.Instant()
	time.Sleep(time.Millisecond)
	b := SystemClock{}.Instant()
	assert.True(t, b.After(a))
}

// manualClock is a deterministic [Clock] for tests: each call to Instant
// advances by a fixed step from a fixed base, generalized from catrate's
// timeNow variable-swap idiom into an injectable collaborator.
type manualClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newManualClock(base time.Time, step time.Duration) *manualClock {
	return &manualClock{now: base, step: step}
}

func (c *manualClock) Instant() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

var _ Clock = (*manualClock)(nil)
