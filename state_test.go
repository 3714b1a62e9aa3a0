package recur

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtomicStateTryTransition(t *testing.T) {
	var s atomicState
	assert.Equal(t, Stopped, s.Load())

	assert.True(t, s.TryTransition(Stopped, Executing))
	assert.Equal(t, Executing, s.Load())

	assert.False(t, s.TryTransition(Stopped, Executing), "a second transition from the same from-state must fail once moved on")
	assert.True(t, s.TryTransition(Executing, Pending))
	assert.True(t, s.TryTransition(Pending, Stopped))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Stopped", Stopped.String())
	assert.Equal(t, "Executing", Executing.String())
	assert.Equal(t, "Pending", Pending.String())
	assert.Equal(t, "Unknown", State(99).String())
}
