package clicks

import "sync"

// Queue is the hand-off between the resolution path and the consumer pool.
// Enqueue must return in bounded, small time; Dequeue blocks until an event
// arrives or the queue closes.
type Queue interface {
	// Enqueue accepts the event or reports false when the queue is
	// saturated or closed. It never blocks on downstream I/O.
	Enqueue(e Event) bool
	// Dequeue hands one event to exactly one caller. ok is false once the
	// queue is closed and drained.
	Dequeue() (e Event, ok bool)
	Close()
}

// ChannelQueue is the in-process Queue: a bounded buffered channel with an
// explicit overflow policy (reject, caller drops).
type ChannelQueue struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

func NewChannelQueue(capacity int) *ChannelQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &ChannelQueue{
		ch:   make(chan Event, capacity),
		done: make(chan struct{}),
	}
}

func (q *ChannelQueue) Enqueue(e Event) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.ch <- e:
		return true
	default:
		return false
	}
}

func (q *ChannelQueue) Dequeue() (Event, bool) {
	select {
	case e := <-q.ch:
		return e, true
	case <-q.done:
		// Closed: hand out whatever is still buffered before reporting
		// exhaustion, so a graceful drain sees every accepted event.
		select {
		case e := <-q.ch:
			return e, true
		default:
			return Event{}, false
		}
	}
}

// Close rejects new writes. Buffered events remain dequeueable.
func (q *ChannelQueue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Len reports the number of undrained events, used for shutdown accounting.
func (q *ChannelQueue) Len() int {
	return len(q.ch)
}
