package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balesniy/reduced.to/internal"
)

func TestMemoryStoreLinkUniqueness(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.InsertLink(ctx, &internal.Link{Key: "abc1", DestinationURL: "https://example.com"}))
	err := st.InsertLink(ctx, &internal.Link{Key: "abc1", DestinationURL: "https://other.example"})
	assert.ErrorIs(t, err, internal.ErrKeyConflict)

	link, err := st.FindLinkByKey(ctx, "abc1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.DestinationURL)

	_, err = st.FindLinkByKey(ctx, "missing")
	assert.ErrorIs(t, err, internal.ErrNotFound)
}

func TestMemoryStoreDeleteExpiredLinks(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	require.NoError(t, st.InsertLink(ctx, &internal.Link{Key: "dead1", DestinationURL: "https://a.example", ExpiresAt: &past}))
	require.NoError(t, st.InsertLink(ctx, &internal.Link{Key: "live1", DestinationURL: "https://b.example", ExpiresAt: &future}))
	require.NoError(t, st.InsertLink(ctx, &internal.Link{Key: "perm1", DestinationURL: "https://c.example"}))

	// Click facts referencing a swept link must survive.
	require.NoError(t, st.InsertClickFact(ctx, &internal.ClickFact{ID: uuid.New(), LinkKey: "dead1", Timestamp: time.Now()}))

	removed, err := st.DeleteExpiredLinks(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = st.FindLinkByKey(ctx, "dead1")
	assert.ErrorIs(t, err, internal.ErrNotFound)
	_, err = st.FindLinkByKey(ctx, "live1")
	assert.NoError(t, err)

	count, err := st.CountClickFacts(ctx, ClickFilter{LinkKey: "dead1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStoreClickFilterWindow(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	for _, offset := range []time.Duration{0, -time.Hour, -48 * time.Hour} {
		require.NoError(t, st.InsertClickFact(ctx, &internal.ClickFact{
			ID: uuid.New(), LinkKey: "abc1", Timestamp: now.Add(offset),
		}))
	}

	count, err := st.CountClickFacts(ctx, ClickFilter{LinkKey: "abc1", From: now.Add(-2 * time.Hour), To: now})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = st.CountClickFacts(ctx, ClickFilter{LinkKey: "abc1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestMemoryStoreClicksPerDay(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, st.InsertClickFact(ctx, &internal.ClickFact{
			ID: uuid.New(), LinkKey: "abc1", Timestamp: now,
		}))
	}
	require.NoError(t, st.InsertClickFact(ctx, &internal.ClickFact{
		ID: uuid.New(), LinkKey: "abc1", Timestamp: now.AddDate(0, 0, -1),
	}))

	rows, err := st.ClicksPerDay(ctx, ClickFilter{LinkKey: "abc1"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Day.Before(rows[1].Day))
	assert.Equal(t, int64(1), rows[0].Count)
	assert.Equal(t, int64(3), rows[1].Count)
}

func TestMemoryStoreCountByDimensionOrdering(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	browsers := []string{"Chrome", "Chrome", "Chrome", "Firefox", "Safari", "Safari"}
	for _, b := range browsers {
		require.NoError(t, st.InsertClickFact(ctx, &internal.ClickFact{
			ID: uuid.New(), LinkKey: "abc1", Timestamp: now, Browser: b,
		}))
	}

	rows, err := st.CountByDimension(ctx, ClickFilter{LinkKey: "abc1"}, internal.DimensionBrowser, "")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, DimensionCount{Value: "Chrome", Count: 3}, rows[0])
	assert.Equal(t, DimensionCount{Value: "Safari", Count: 2}, rows[1])
	assert.Equal(t, DimensionCount{Value: "Firefox", Count: 1}, rows[2])
}
