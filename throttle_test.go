package recur

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThrottleSerializesSubmissions(t *testing.T) {
	th := NewThrottle()

	const n = 50
	var mu sync.Mutex
	var order []int
	var active int
	var maxActive int

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			th.Submit(func() {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				mu.Lock()
				active--
				order = append(order, i)
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "throttle must never run two submissions concurrently")
	assert.Len(t, order, n)
}

func TestThrottleRecoversPanickingSubmission(t *testing.T) {
	th := NewThrottle()
	ran := false

	assert.NotPanics(t, func() {
		th.Submit(func() { panic("boom") })
		th.Submit(func() { ran = true })
	})

	// the second submission may race the first's panic recovery; submit a
	// third and wait for it synchronously to guarantee ran has been set.
	done := make(chan struct{})
	th.Submit(func() { close(done) })
	<-done

	assert.True(t, ran, "a panicking submission must not prevent subsequent submissions from running")
}
