package clicks

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Producer is the fire-and-forget side of the pipeline. Publish returns
// without waiting for durable persistence; when the queue is saturated the
// event is dropped and counted. Analytics completeness is sacrificed before
// redirect latency, and no retry happens at this layer.
type Producer struct {
	queue   Queue
	dropped atomic.Int64
}

func NewProducer(q Queue) *Producer {
	return &Producer{queue: q}
}

// Publish enqueues the event. It never blocks and never returns an error to
// the resolution path.
func (p *Producer) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if p.queue.Enqueue(e) {
		publishedTotal.Inc()
		return
	}
	p.dropped.Add(1)
	droppedTotal.Inc()
	slog.Warn("click event dropped, ingestion queue saturated",
		"link_key", e.LinkKey, "dropped_total", p.dropped.Load())
}

// Dropped reports how many events this producer has dropped since start.
func (p *Producer) Dropped() int64 {
	return p.dropped.Load()
}
