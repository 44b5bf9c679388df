package clicks

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelQueueBoundedAcceptance(t *testing.T) {
	const capacity, offered = 8, 20
	q := NewChannelQueue(capacity)

	accepted := 0
	for i := 0; i < offered; i++ {
		if q.Enqueue(Event{LinkKey: "k"}) {
			accepted++
		}
	}
	assert.Equal(t, capacity, accepted)
	assert.Equal(t, capacity, q.Len())
}

func TestChannelQueueDrainsAfterClose(t *testing.T) {
	q := NewChannelQueue(4)
	require.True(t, q.Enqueue(Event{LinkKey: "a"}))
	require.True(t, q.Enqueue(Event{LinkKey: "b"}))

	q.Close()
	assert.False(t, q.Enqueue(Event{LinkKey: "c"}), "closed queue must reject writes")

	e, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", e.LinkKey)

	e, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "b", e.LinkKey)

	_, ok = q.Dequeue()
	assert.False(t, ok, "drained closed queue must report exhaustion")
}

func TestChannelQueueExclusiveHandOff(t *testing.T) {
	const n = 100
	q := NewChannelQueue(n)
	for i := 0; i < n; i++ {
		require.True(t, q.Enqueue(Event{LinkKey: "k"}))
	}
	q.Close()

	var wg sync.WaitGroup
	var delivered atomic.Int64
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, ok := q.Dequeue(); !ok {
					return
				}
				delivered.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(n), delivered.Load(), "every event delivered exactly once")
}
