// Package analytics is the read side: day and dimension buckets recomputed
// from persisted click facts at query time. Nothing here mutates facts, so
// late-arriving events are picked up by the next query for free.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/balesniy/reduced.to/internal"
	"github.com/balesniy/reduced.to/internal/store"
)

// DayBucket is one calendar-day entry in a clicks-over-time series.
type DayBucket struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// FieldBucket is one grouped-dimension row. Include carries the secondary
// dimension value when the caller joined one.
type FieldBucket struct {
	Value   string `json:"value"`
	Include string `json:"include,omitempty"`
	Count   int64  `json:"count"`
}

type Aggregator struct {
	store store.Store
	now   func() time.Time
}

func NewAggregator(s store.Store) *Aggregator {
	return &Aggregator{store: s, now: time.Now}
}

// TotalVisits counts persisted facts, optionally scoped to one link. An empty
// linkKey aggregates across all links.
func (a *Aggregator) TotalVisits(ctx context.Context, linkKey string) (int64, error) {
	return a.store.CountClickFacts(ctx, store.ClickFilter{LinkKey: linkKey})
}

// ClicksOverTime buckets facts from the last `days` calendar days (server
// timezone) by day: exactly one entry per day, zero-filled, chronological,
// ending with today.
func (a *Aggregator) ClicksOverTime(ctx context.Context, linkKey string, days int) ([]DayBucket, error) {
	if days < 1 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	now := a.now()
	start := startOfDay(now).AddDate(0, 0, -(days - 1))

	rows, err := a.store.ClicksPerDay(ctx, store.ClickFilter{
		LinkKey: linkKey,
		From:    start,
		To:      now,
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[time.Time]int64, len(rows))
	for _, row := range rows {
		counts[startOfDay(row.Day)] = row.Count
	}

	series := make([]DayBucket, days)
	for i := range series {
		day := start.AddDate(0, 0, i)
		series[i] = DayBucket{Day: day, Count: counts[day]}
	}
	return series, nil
}

// GroupedByField counts facts from the same window grouped by a categorical
// dimension, with an optional secondary dimension joined onto each row (for
// example city with country). Facts whose value is "unknown" appear under
// that label.
func (a *Aggregator) GroupedByField(ctx context.Context, linkKey, dimension string, days int, include string) ([]FieldBucket, error) {
	if days < 1 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	dim, err := internal.ParseDimension(dimension)
	if err != nil {
		return nil, err
	}
	var inc internal.Dimension
	if include != "" {
		if inc, err = internal.ParseDimension(include); err != nil {
			return nil, err
		}
	}

	now := a.now()
	rows, err := a.store.CountByDimension(ctx, store.ClickFilter{
		LinkKey: linkKey,
		From:    startOfDay(now).AddDate(0, 0, -(days - 1)),
		To:      now,
	}, dim, inc)
	if err != nil {
		return nil, err
	}

	buckets := make([]FieldBucket, len(rows))
	for i, row := range rows {
		buckets[i] = FieldBucket{Value: row.Value, Include: row.Include, Count: row.Count}
	}
	return buckets, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
