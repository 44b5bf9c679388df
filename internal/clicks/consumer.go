package clicks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/balesniy/reduced.to/internal/store"
)

// ConsumerConfig tunes the worker pool. Zero values fall back to defaults.
type ConsumerConfig struct {
	Workers         int
	PersistAttempts int
	PersistBackoff  time.Duration
	PersistTimeout  time.Duration
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.Workers < 1 {
		c.Workers = 4
	}
	if c.PersistAttempts < 1 {
		c.PersistAttempts = 3
	}
	if c.PersistBackoff <= 0 {
		c.PersistBackoff = 100 * time.Millisecond
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = 5 * time.Second
	}
	return c
}

// Consumer drains the queue with a pool of workers, enriches each event and
// persists the resulting fact. Persistence failures retry with backoff a
// bounded number of times; an exhausted event is logged and dropped so a
// stalled store can never wedge the pool. A single bad event never kills a
// worker loop.
type Consumer struct {
	queue Queue
	store store.Store
	geo   GeoLocator
	cfg   ConsumerConfig
	wg    sync.WaitGroup
}

func NewConsumer(q Queue, s store.Store, geo GeoLocator, cfg ConsumerConfig) *Consumer {
	return &Consumer{queue: q, store: s, geo: geo, cfg: cfg.withDefaults()}
}

// Start launches the worker pool. Workers run until the queue is closed and
// drained.
func (c *Consumer) Start() {
	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for {
				e, ok := c.queue.Dequeue()
				if !ok {
					return
				}
				c.process(e)
			}
		}()
	}
	slog.Info("click consumer started", "workers", c.cfg.Workers)
}

// Stop closes the queue to new writes and lets in-flight and buffered events
// finish within the grace period. Whatever remains after that is dropped with
// a trace, never silently.
func (c *Consumer) Stop(grace time.Duration) {
	c.queue.Close()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// A write racing Close can slip into the buffer after the last
		// worker exited, so the drained path still checks the queue.
		if remaining := queueLen(c.queue); remaining > 0 {
			slog.Warn("click consumer stopped with undrained events",
				"remaining", remaining)
			return
		}
		slog.Info("click consumer drained")
	case <-time.After(grace):
		slog.Warn("click consumer shutdown grace elapsed, dropping undrained events",
			"remaining", queueLen(c.queue))
	}
}

// queueLen reports backlog depth for shutdown accounting, -1 when the queue
// cannot say.
func queueLen(q Queue) int {
	if l, ok := q.(interface{ Len() int }); ok {
		return l.Len()
	}
	return -1
}

func (c *Consumer) process(e Event) {
	if e.LinkKey == "" {
		slog.Warn("skipping click event without link key")
		discardedTotal.Inc()
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	fact := Enrich(e, c.geo)

	backoff := c.cfg.PersistBackoff
	for attempt := 1; attempt <= c.cfg.PersistAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
		err := c.store.InsertClickFact(ctx, &fact)
		cancel()
		if err == nil {
			persistedTotal.Inc()
			return
		}

		if attempt < c.cfg.PersistAttempts {
			persistRetriesTotal.Inc()
			slog.Warn("click fact insert failed, retrying",
				"link_key", fact.LinkKey, "attempt", attempt, "err", err)
			time.Sleep(backoff)
			backoff *= 2
			continue
		}
		slog.Error("click fact dropped, persistence retries exhausted",
			"link_key", fact.LinkKey, "attempts", attempt, "err", err)
		discardedTotal.Inc()
	}
}
