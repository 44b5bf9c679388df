// Package store is the durable home of links and click facts. Fact inserts
// are independent and append-only; the link key's unique constraint is the
// authoritative uniqueness check, allocator pre-checks are only an
// optimization.
package store

import (
	"context"
	"time"

	"github.com/balesniy/reduced.to/internal"
)

// ClickFilter scopes fact queries. Zero LinkKey means all links; zero From/To
// leave that side of the window open.
type ClickFilter struct {
	LinkKey string
	From    time.Time
	To      time.Time
}

// DayCount is one calendar-day bucket as returned by the store. Days with no
// facts are absent; zero-filling is the aggregator's job.
type DayCount struct {
	Day   time.Time
	Count int64
}

// DimensionCount is one grouped row. Include carries the secondary dimension
// value when the query joined one, otherwise it is empty.
type DimensionCount struct {
	Value   string
	Include string
	Count   int64
}

type Store interface {
	FindLinkByKey(ctx context.Context, key string) (*internal.Link, error)
	// InsertLink fails with internal.ErrKeyConflict when the key is taken.
	InsertLink(ctx context.Context, link *internal.Link) error
	// DeleteExpiredLinks removes links whose expiry passed before the given
	// instant and reports how many were removed. Click facts are untouched.
	DeleteExpiredLinks(ctx context.Context, before time.Time) (int64, error)

	InsertClickFact(ctx context.Context, fact *internal.ClickFact) error
	CountClickFacts(ctx context.Context, f ClickFilter) (int64, error)
	ClicksPerDay(ctx context.Context, f ClickFilter) ([]DayCount, error)
	CountByDimension(ctx context.Context, f ClickFilter, dim, include internal.Dimension) ([]DimensionCount, error)
}
