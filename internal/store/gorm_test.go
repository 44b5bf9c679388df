package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayBucketExprNamedZone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	sel, zone := dayBucketExpr(berlin)
	assert.Contains(t, sel, `"timestamp" AT TIME ZONE ?`)
	assert.NotContains(t, sel, "::interval")
	assert.Equal(t, "Europe/Berlin", zone)
}

func TestDayBucketExprUnnamedZoneFallsBackToOffset(t *testing.T) {
	// A location loaded from /etc/localtime carries the name "Local",
	// which Postgres cannot resolve; the offset form must be used.
	loc := time.FixedZone("Local", -5*3600)

	sel, zone := dayBucketExpr(loc)
	assert.Contains(t, sel, "?::interval")
	assert.Equal(t, "-05:00", zone)
}

// A click just after local midnight stores as the previous day in UTC. Once
// the query shifts it into the bucketing zone, the scanned wall-clock date is
// the local calendar day regardless of the label the driver put on it.
func TestDayInZone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// date_trunc's result for a 01:00 +02:00 click, as the driver scans it.
	scanned := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	got := dayInZone(scanned, berlin)
	assert.True(t, got.Equal(time.Date(2026, 8, 30, 0, 0, 0, 0, berlin)))
	assert.Equal(t, berlin, got.Location())

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	got = dayInZone(scanned, ny)
	assert.Equal(t, 30, got.Day(), "negative offsets must not shift the date")
	assert.Equal(t, time.August, got.Month())
}
