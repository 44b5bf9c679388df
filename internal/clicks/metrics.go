package clicks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reducedto",
		Subsystem: "clicks",
		Name:      "published_total",
		Help:      "Click events accepted onto the ingestion queue.",
	})
	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reducedto",
		Subsystem: "clicks",
		Name:      "dropped_total",
		Help:      "Click events dropped at publish time because the queue was saturated.",
	})
	persistedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reducedto",
		Subsystem: "clicks",
		Name:      "persisted_total",
		Help:      "Click facts durably inserted.",
	})
	discardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reducedto",
		Subsystem: "clicks",
		Name:      "discarded_total",
		Help:      "Events abandoned by the consumer: malformed, or persistence retries exhausted.",
	})
	persistRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reducedto",
		Subsystem: "clicks",
		Name:      "persist_retries_total",
		Help:      "Failed persistence attempts that were retried.",
	})
)
