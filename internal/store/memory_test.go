package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/irrigation-advisor/internal/irrigation"
	"github.com/i474232898/irrigation-advisor/internal/weather"
)

var plot = weather.Location{City: "Kolkata", Country: "IN"}

func snapshotAt(ts time.Time, temp float64) weather.WeatherSnapshot {
	return weather.WeatherSnapshot{Location: plot, Timestamp: ts, Temperature: temp}
}

func TestMemoryStoreSnapshotRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	base := time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		s.SaveSnapshot(plot, snapshotAt(base.Add(time.Duration(i)*time.Minute), float64(20+i)))
	}

	latest, err := s.GetLatest(plot)
	require.NoError(t, err)
	assert.Equal(t, 22.0, latest.Temperature)

	all, err := s.GetRange(plot, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 21.0, all[0].Temperature)
}

func TestMemoryStoreSnapshotRetentionByAge(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	s.SaveSnapshot(plot, snapshotAt(now.Add(-3*time.Hour), 18))
	s.SaveSnapshot(plot, snapshotAt(now.Add(-10*time.Minute), 25))

	all, err := s.GetRange(plot, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 25.0, all[0].Temperature)

	// A lone stale snapshot is kept so GetLatest still has something.
	other := weather.Location{City: "Pune", Country: "IN"}
	s.SaveSnapshot(other, snapshotAt(now.Add(-5*time.Hour), 30))
	_, err = s.GetLatest(other)
	assert.NoError(t, err)
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore(10, time.Hour)

	_, err := s.GetLatest(plot)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetRange(plot, time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LatestReading(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3, 0)

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Append(ctx, Record{ID: id, Recommendation: irrigation.Recommendation{Action: irrigation.ActionSchedule}}))
	}

	recs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "d", recs[0].ID)
	assert.Equal(t, "c", recs[1].ID)

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	empty, err := NewMemoryStore(0, 0).Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStoreLatestReading(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 0)

	first, second := 41.0, 12.5
	require.NoError(t, s.SaveReading(ctx, SensorReading{ID: "1", SoilMoistureShallow: &first}))
	require.NoError(t, s.SaveReading(ctx, SensorReading{ID: "2", SoilMoistureShallow: &second}))

	r, err := s.LatestReading(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", r.ID)
	assert.Equal(t, 12.5, *r.SoilMoistureShallow)
}
