package recur

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemSchedulerFiresAndCancels(t *testing.T) {
	s := SystemScheduler{}

	fired := make(chan struct{})
	h := s.Schedule(5*time.Millisecond, func() { close(fired) })
	<-fired
	_ = h.Cancel(true) // already fired; Cancel must not panic or block

	fired2 := make(chan struct{})
	h2 := s.Schedule(time.Hour, func() { close(fired2) })
	assert.True(t, h2.Cancel(true))
}

// manualScheduler is a deterministic [Scheduler] for tests: Schedule
// records its call instead of arming a real timer, and fires only when
// the test explicitly asks it to via fireNext().
type manualScheduler struct {
	mu      sync.Mutex
	pending []manualTimer
}

type manualTimer struct {
	delay     time.Duration
	fn        func()
	cancelled *bool
}

type manualHandle struct {
	cancelled *bool
}

func (h *manualHandle) Cancel(mayInterrupt bool) bool {
	*h.cancelled = true
	return true
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{}
}

func (s *manualScheduler) Schedule(delay time.Duration, fn func()) TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancelled := false
	s.pending = append(s.pending, manualTimer{delay: delay, fn: fn, cancelled: &cancelled})
	return &manualHandle{cancelled: &cancelled}
}

// fireNext runs the oldest armed, non-cancelled timer's callback and
// reports whether one was found.
func (s *manualScheduler) fireNext() bool {
	s.mu.Lock()
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		if *next.cancelled {
			s.mu.Lock()
			continue
		}
		next.fn()
		return true
	}
	s.mu.Unlock()
	return false
}

var _ Scheduler = (*manualScheduler)(nil)
