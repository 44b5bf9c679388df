package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/balesniy/reduced.to/internal"
)

// MemoryStore is an in-process Store with the same semantics as the Postgres
// one. It backs tests and single-binary development runs.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[string]internal.Link
	facts []internal.ClickFact
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{links: make(map[string]internal.Link)}
}

func (s *MemoryStore) FindLinkByKey(ctx context.Context, key string) (*internal.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[key]
	if !ok {
		return nil, internal.ErrNotFound
	}
	return &link, nil
}

func (s *MemoryStore) InsertLink(ctx context.Context, link *internal.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link.Key]; ok {
		return internal.ErrKeyConflict
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	s.links[link.Key] = *link
	return nil
}

func (s *MemoryStore) DeleteExpiredLinks(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, link := range s.links {
		if link.ExpiresAt != nil && link.ExpiresAt.Before(before) {
			delete(s.links, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) InsertClickFact(ctx context.Context, fact *internal.ClickFact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = append(s.facts, *fact)
	return nil
}

func (s *MemoryStore) CountClickFacts(ctx context.Context, f ClickFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, fact := range s.facts {
		if f.matches(fact) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ClicksPerDay(ctx context.Context, f ClickFilter) ([]DayCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buckets := make(map[time.Time]int64)
	for _, fact := range s.facts {
		if !f.matches(fact) {
			continue
		}
		day := startOfDay(fact.Timestamp)
		buckets[day]++
	}

	rows := make([]DayCount, 0, len(buckets))
	for day, count := range buckets {
		rows = append(rows, DayCount{Day: day, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Day.Before(rows[j].Day) })
	return rows, nil
}

func (s *MemoryStore) CountByDimension(ctx context.Context, f ClickFilter, dim, include internal.Dimension) ([]DimensionCount, error) {
	value, err := dimensionValue(dim)
	if err != nil {
		return nil, err
	}
	secondary := func(internal.ClickFact) string { return "" }
	if include != "" {
		if secondary, err = dimensionValue(include); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	type groupKey struct{ value, include string }
	buckets := make(map[groupKey]int64)
	for _, fact := range s.facts {
		if !f.matches(fact) {
			continue
		}
		buckets[groupKey{value(fact), secondary(fact)}]++
	}

	rows := make([]DimensionCount, 0, len(buckets))
	for k, count := range buckets {
		rows = append(rows, DimensionCount{Value: k.value, Include: k.include, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Value < rows[j].Value
	})
	return rows, nil
}

func (f ClickFilter) matches(fact internal.ClickFact) bool {
	if f.LinkKey != "" && fact.LinkKey != f.LinkKey {
		return false
	}
	if !f.From.IsZero() && fact.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && fact.Timestamp.After(f.To) {
		return false
	}
	return true
}

func dimensionValue(dim internal.Dimension) (func(internal.ClickFact) string, error) {
	switch dim {
	case internal.DimensionDevice:
		return func(f internal.ClickFact) string { return f.Device }, nil
	case internal.DimensionOS:
		return func(f internal.ClickFact) string { return f.OS }, nil
	case internal.DimensionBrowser:
		return func(f internal.ClickFact) string { return f.Browser }, nil
	case internal.DimensionCountry:
		return func(f internal.ClickFact) string { return f.Country }, nil
	case internal.DimensionRegion:
		return func(f internal.ClickFact) string { return f.Region }, nil
	case internal.DimensionCity:
		return func(f internal.ClickFact) string { return f.City }, nil
	default:
		return nil, fmt.Errorf("unsupported dimension %q", dim)
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
