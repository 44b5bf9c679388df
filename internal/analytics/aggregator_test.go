package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balesniy/reduced.to/internal"
	"github.com/balesniy/reduced.to/internal/store"
)

func seedFact(t *testing.T, st store.Store, key string, at time.Time, mutate ...func(*internal.ClickFact)) {
	t.Helper()
	fact := internal.ClickFact{
		ID:        uuid.New(),
		LinkKey:   key,
		Timestamp: at,
		Device:    "desktop",
		OS:        "Windows",
		Browser:   "Chrome",
		Country:   "Germany",
		Region:    "Berlin",
		City:      "Berlin",
	}
	for _, m := range mutate {
		m(&fact)
	}
	require.NoError(t, st.InsertClickFact(context.Background(), &fact))
}

func TestTotalVisits(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()
	seedFact(t, st, "abc1", now)
	seedFact(t, st, "abc1", now.Add(-time.Hour))
	seedFact(t, st, "zzz9", now)
	agg := NewAggregator(st)
	ctx := context.Background()

	total, err := agg.TotalVisits(ctx, "abc1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// Unscoped call covers every link.
	global, err := agg.TotalVisits(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), global)
}

func TestClicksOverTimeZeroFilled(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()
	seedFact(t, st, "abc1", now.AddDate(0, 0, -3))
	agg := NewAggregator(st)

	series, err := agg.ClicksOverTime(context.Background(), "abc1", 7)
	require.NoError(t, err)
	require.Len(t, series, 7)

	for i, bucket := range series {
		if i > 0 {
			assert.True(t, bucket.Day.After(series[i-1].Day), "series must be chronological")
		}
		// Offset -3 from today is index 3 in a 7-day window ending today.
		if i == 3 {
			assert.Equal(t, int64(1), bucket.Count)
		} else {
			assert.Zero(t, bucket.Count, "day %d", i)
		}
	}
}

func TestClicksOverTimeExcludesOldFacts(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()
	seedFact(t, st, "abc1", now.AddDate(0, 0, -30))
	seedFact(t, st, "abc1", now)
	agg := NewAggregator(st)

	series, err := agg.ClicksOverTime(context.Background(), "abc1", 7)
	require.NoError(t, err)

	var sum int64
	for _, bucket := range series {
		sum += bucket.Count
	}
	assert.Equal(t, int64(1), sum)
}

func TestClicksOverTimeRejectsBadWindow(t *testing.T) {
	agg := NewAggregator(store.NewMemoryStore())
	_, err := agg.ClicksOverTime(context.Background(), "abc1", 0)
	assert.Error(t, err)
}

func TestGroupedByField(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()
	seedFact(t, st, "abc1", now)
	seedFact(t, st, "abc1", now, func(f *internal.ClickFact) { f.Device = "mobile"; f.OS = "iOS" })
	seedFact(t, st, "abc1", now, func(f *internal.ClickFact) { f.Device = internal.UnknownValue })
	agg := NewAggregator(st)

	buckets, err := agg.GroupedByField(context.Background(), "abc1", "device", 7, "")
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	counts := make(map[string]int64)
	for _, b := range buckets {
		counts[b.Value] = b.Count
	}
	assert.Equal(t, int64(1), counts["desktop"])
	assert.Equal(t, int64(1), counts["mobile"])
	assert.Equal(t, int64(1), counts[internal.UnknownValue], "unknown is a category, not an exclusion")
}

func TestGroupedByFieldWithInclude(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()
	seedFact(t, st, "abc1", now, func(f *internal.ClickFact) { f.City = "Berlin"; f.Country = "Germany" })
	seedFact(t, st, "abc1", now, func(f *internal.ClickFact) { f.City = "Berlin"; f.Country = "Germany" })
	seedFact(t, st, "abc1", now, func(f *internal.ClickFact) { f.City = "Paris"; f.Country = "France" })
	agg := NewAggregator(st)

	buckets, err := agg.GroupedByField(context.Background(), "abc1", "city", 7, "country")
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	assert.Equal(t, FieldBucket{Value: "Berlin", Include: "Germany", Count: 2}, buckets[0])
	assert.Equal(t, FieldBucket{Value: "Paris", Include: "France", Count: 1}, buckets[1])
}

// Every grouped partition must add up to the window total.
func TestGroupedPartitionConsistency(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()
	devices := []string{"desktop", "mobile", "tablet", "desktop", internal.UnknownValue}
	for _, d := range devices {
		device := d
		seedFact(t, st, "abc1", now, func(f *internal.ClickFact) { f.Device = device })
	}
	agg := NewAggregator(st)
	ctx := context.Background()

	total, err := agg.TotalVisits(ctx, "abc1")
	require.NoError(t, err)

	buckets, err := agg.GroupedByField(ctx, "abc1", "device", 7, "")
	require.NoError(t, err)

	var sum int64
	for _, b := range buckets {
		sum += b.Count
	}
	assert.Equal(t, total, sum)
}

func TestGroupedByFieldRejectsUnknownDimension(t *testing.T) {
	agg := NewAggregator(store.NewMemoryStore())

	_, err := agg.GroupedByField(context.Background(), "abc1", "timestamp", 7, "")
	assert.Error(t, err)

	_, err = agg.GroupedByField(context.Background(), "abc1", "city", 7, "referer")
	assert.Error(t, err)
}

// Reads are pure: repeating any query with no intervening writes returns
// identical results.
func TestAggregatorIdempotentReads(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()
	seedFact(t, st, "abc1", now)
	seedFact(t, st, "abc1", now.AddDate(0, 0, -2), func(f *internal.ClickFact) { f.Device = "mobile" })
	agg := NewAggregator(st)
	ctx := context.Background()

	total1, err := agg.TotalVisits(ctx, "abc1")
	require.NoError(t, err)
	total2, err := agg.TotalVisits(ctx, "abc1")
	require.NoError(t, err)
	assert.Equal(t, total1, total2)

	series1, err := agg.ClicksOverTime(ctx, "abc1", 7)
	require.NoError(t, err)
	series2, err := agg.ClicksOverTime(ctx, "abc1", 7)
	require.NoError(t, err)
	assert.Equal(t, series1, series2)

	grouped1, err := agg.GroupedByField(ctx, "abc1", "device", 7, "")
	require.NoError(t, err)
	grouped2, err := agg.GroupedByField(ctx, "abc1", "device", 7, "")
	require.NoError(t, err)
	assert.Equal(t, grouped1, grouped2)
}
