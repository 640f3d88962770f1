package game

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOneShot(t *testing.T) {
	var o OneShot
	assert.False(t, o.Consumed("kalani"))
	assert.True(t, o.TryConsume("kalani"))
	assert.False(t, o.TryConsume("kalani"))
	assert.True(t, o.Consumed("kalani"))
	assert.True(t, o.TryConsume("k2"))

	o.Reset()
	assert.False(t, o.Consumed("kalani"))
	assert.True(t, o.TryConsume("kalani"))
}

func TestOneShot_ConcurrentConsumeWinsOnce(t *testing.T) {
	var o OneShot
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if o.TryConsume("flag") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
