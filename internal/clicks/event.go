// Package clicks is the ingestion pipeline: a non-blocking producer hands raw
// click events to a bounded queue, worker consumers enrich them and persist
// click facts. A slow or failing analytics path never blocks resolution.
package clicks

import "time"

// Event is the raw click as captured on the resolution path, before
// enrichment. It is the wire shape on the broker queue.
type Event struct {
	LinkKey   string    `json:"link_key"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	Referer   string    `json:"referer,omitempty"`
}
