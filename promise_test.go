package recur

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPromisedFanOut(t *testing.T) {
	p := NewPromised[int]()

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	results := make([]int, n)

	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			v, err := p.Promise().Await(context.Background())
			assert.NoError(t, err)
			results[idx] = v
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	p.Success(42)
	wg.Wait()

	for i, v := range results {
		assert.Equal(t, 42, v, "subscriber %d", i)
	}
}

func TestPromisedLateSubscription(t *testing.T) {
	p := NewPromised[string]()
	p.Success("late")

	v, err := p.Promise().Await(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "late", v)
}

func TestPromisedSecondSettleIsNoop(t *testing.T) {
	p := NewPromised[int]()
	p.Success(1)
	p.Success(2)
	p.Error(assert.AnError)

	v, err := p.Promise().Await(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestPromisedThenSynchronousWhenSettled(t *testing.T) {
	p := Completed(7)
	called := false
	p.Then(func(v int, err error) {
		called = true
		assert.Equal(t, 7, v)
		assert.NoError(t, err)
	})
	assert.True(t, called)
}

func TestPromisedAwaitContextCancellation(t *testing.T) {
	p := NewPromised[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := p.Promise().Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFailed(t *testing.T) {
	_, err := Failed[int](assert.AnError).Await(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
