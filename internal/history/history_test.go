package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvaria04/Traffic-light-Management/internal/db"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

// Monday
var monday8 = time.Date(2024, 6, 3, 8, 15, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	store := NewStore(database)
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestDayOfWeek(t *testing.T) {
	assert.Equal(t, 0, DayOfWeek(monday8))
	assert.Equal(t, 5, DayOfWeek(monday8.AddDate(0, 0, 5)))
	assert.Equal(t, 6, DayOfWeek(monday8.AddDate(0, 0, 6)))
}

func TestStore_RecordAndQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, monday8, phase.Demand{4, 2, 6, 0}))
	require.NoError(t, store.Record(ctx, monday8.Add(time.Hour), phase.Demand{1, 1, 1, 1}))
	require.NoError(t, store.Record(ctx, monday8.AddDate(0, 0, 1), phase.Demand{2, 0, 0, 0}))

	samples, err := store.Samples(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, 8, samples[0].Hour)
	assert.Equal(t, 0, samples[0].DayOfWeek)
	assert.Equal(t, phase.Demand{4, 2, 6, 0}, samples[0].Demand)
	assert.True(t, samples[0].RecordedAt.Equal(monday8))
	assert.NotEmpty(t, samples[0].ID)
	assert.Equal(t, 1, samples[2].DayOfWeek)

	recent, err := store.Samples(ctx, monday8.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 2, stats.Days)
	assert.Equal(t, 2, stats.Hours)
	assert.True(t, stats.First.Equal(monday8))
	assert.True(t, stats.Last.Equal(monday8.AddDate(0, 0, 1)))
}

func TestStore_EmptyStats(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Count)
	assert.True(t, stats.First.IsZero())
}

const historyCSV = `timestamp,hour,day_of_week,north_density,south_density,east_density,west_density
2024-06-03 08:05:00,8,0,10,2,4,0
2024-06-03 08:35:00,8,0,6,2,4,2
2024-06-04 08:10:00,8,1,1,1,1,1
2024-06-04 09:10:00,9,1,0,-3,5,5
2024-06-04 25:10:00,25,1,9,9,9,9
`

func TestStore_ImportExportCSV(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "traffic_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(historyCSV), 0o644))

	n, err := store.ImportCSV(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	samples, err := store.Samples(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, samples, 4)
	assert.Equal(t, phase.Demand{0, 0, 5, 5}, samples[3].Demand)

	out := filepath.Join(dir, "export.csv")
	require.NoError(t, store.ExportCSV(ctx, out))

	again := newTestStore(t)
	n, err = again.ImportCSV(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestStore_HourlyProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, monday8, phase.Demand{4, 0, 2, 0}))
	require.NoError(t, store.Record(ctx, monday8.Add(10*time.Minute), phase.Demand{2, 0, 2, 0}))
	require.NoError(t, store.Record(ctx, monday8.Add(2*time.Hour), phase.Demand{0, 8, 0, 0}))
	require.NoError(t, store.Record(ctx, monday8.AddDate(0, 0, 2), phase.Demand{0, 0, 0, 9}))

	profile, err := store.HourlyProfile(ctx, 0)
	require.NoError(t, err)
	require.Len(t, profile, 2)
	assert.Equal(t, 8, profile[0].Hour)
	assert.Equal(t, 2, profile[0].Samples)
	assert.InDelta(t, 3.0, profile[0].Mean[phase.North], 1e-9)
	assert.Equal(t, 10, profile[1].Hour)

	all, err := store.HourlyProfile(ctx, -1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 3, all[0].Samples)
}

func TestPredictor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := monday8.AddDate(0, 0, 14)

	// a fresh sample outweighs a stale one
	require.NoError(t, store.Record(ctx, now.AddDate(0, 0, -7), phase.Demand{10, 0, 0, 0}))
	require.NoError(t, store.Record(ctx, now.AddDate(0, 0, -63), phase.Demand{0, 0, 0, 0}))
	require.NoError(t, store.Record(ctx, now.AddDate(0, 0, -6), phase.Demand{0, 5, 0, 0}))

	p := NewPredictor(store, DefaultPredictorConfig())
	p.now = func() time.Time { return now }

	t.Run("same hour and day", func(t *testing.T) {
		pred, err := p.Predict(ctx, 8, 0)
		require.NoError(t, err)
		assert.True(t, pred.Found)
		assert.False(t, pred.Fallback)
		assert.Equal(t, 2, pred.Samples)
		// weights 0.79 and 0.1
		assert.Equal(t, 8, pred.Demand.Of(phase.North))
	})

	t.Run("falls back to the same hour on any day", func(t *testing.T) {
		pred, err := p.PredictAt(ctx, now.AddDate(0, 0, 4))
		require.NoError(t, err)
		assert.True(t, pred.Found)
		assert.True(t, pred.Fallback)
		assert.Equal(t, 3, pred.Samples)
	})

	t.Run("no history", func(t *testing.T) {
		pred, err := p.Predict(ctx, 3, 2)
		require.NoError(t, err)
		assert.False(t, pred.Found)
		assert.Equal(t, phase.Demand{}, pred.Demand)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := p.Predict(ctx, 24, 0)
		assert.Error(t, err)
		_, err = p.Predict(ctx, 8, 7)
		assert.Error(t, err)
	})

	t.Run("whole day", func(t *testing.T) {
		day, err := p.PredictDay(ctx, 0)
		require.NoError(t, err)
		require.Len(t, day, 24)
		assert.True(t, day[8].Found)
		assert.False(t, day[9].Found)
	})
}

func TestPredictor_WeighsAtQueryTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := monday8.AddDate(0, 0, 21)

	require.NoError(t, store.Record(ctx, now.AddDate(0, 0, -7), phase.Demand{10, 0, 0, 0}))
	require.NoError(t, store.Record(ctx, now.AddDate(0, 0, -21), phase.Demand{0, 0, 0, 0}))

	p := NewPredictor(store, DefaultPredictorConfig())
	p.now = func() time.Time { return now }

	// weights 0.79 and 0.37
	pred, err := p.Predict(ctx, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, pred.Demand.Of(phase.North))

	// two weeks later: weights 0.37 and 0.1
	now = now.AddDate(0, 0, 14)
	pred, err = p.Predict(ctx, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, pred.Demand.Of(phase.North))
}

func TestPredictor_RecencyScore(t *testing.T) {
	p := &Predictor{config: DefaultPredictorConfig()}

	assert.InDelta(t, 1.0, p.recencyScore(monday8, monday8), 1e-9)
	assert.InDelta(t, 0.55, p.recencyScore(monday8, monday8.AddDate(0, 0, -15)), 1e-9)
	assert.InDelta(t, 0.1, p.recencyScore(monday8, monday8.AddDate(0, 0, -45)), 1e-9)
	assert.InDelta(t, 0.1, p.recencyScore(monday8, time.Time{}), 1e-9)
	assert.InDelta(t, 1.0, p.recencyScore(monday8, monday8.Add(time.Hour)), 1e-9)
}
