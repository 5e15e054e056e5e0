package bench

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterAddLoad(t *testing.T) {
	var c Counter
	assert.Equal(t, uint64(0), c.Load())

	c.Add()
	c.Add()
	assert.Equal(t, uint64(2), c.Load())
}

func TestCounterConcurrentAdd(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	const goroutines, perGoroutine = 50, 200

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				c.Add()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(goroutines*perGoroutine), c.Load())
}

func TestHandleNilCounter(t *testing.T) {
	var h Handle
	assert.Equal(t, uint64(0), h.Load())
}

func TestHandleReadsUnderlyingCounter(t *testing.T) {
	var c Counter
	c.Add()
	h := Handle{c: &c}
	assert.Equal(t, uint64(1), h.Load())
}
