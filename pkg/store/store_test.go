package store

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/dartsim"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(t *testing.T, simulation string, seed int64, results dartsim.Results, created time.Time) *RunRecord {
	t.Helper()
	params := dartsim.DefaultParams()
	params.Seed = seed
	rec, err := NewRunRecord(simulation, "enforced", params, results)
	require.NoError(t, err)
	rec.CreatedAt = created
	return rec
}

func TestMemoryStoresAreIsolated(t *testing.T) {
	ctx := context.Background()
	first, err := Open("")
	require.NoError(t, err)
	defer first.Close()
	second, err := Open("")
	require.NoError(t, err)
	defer second.Close()

	rec := record(t, "enforced", 1, dartsim.Results{}, time.Now())
	require.NoError(t, first.Save(ctx, rec))

	runs, err := second.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = second.Get(ctx, rec.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err = first.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := record(t, "enforced", 42, dartsim.Results{TargetsDetected: 3, MissionSuccess: true, Steps: 40}, time.Now())
	rec.Overrides = 5
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Get(ctx, rec.ID.String())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, 3, got.TargetsDetected)
	assert.Equal(t, 5, got.Overrides)
	assert.True(t, got.MissionSuccess)

	params, err := got.Parameters()
	require.NoError(t, err)
	assert.Equal(t, int64(42), params.Seed)
	assert.Equal(t, 40, got.Results().Steps)

	byPrefix, err := s.Get(ctx, rec.ID.String()[:8])
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byPrefix.ID)
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "ffffffff")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAssignsID(t *testing.T) {
	s := openTestStore(t)
	rec := record(t, "reactive", 1, dartsim.Results{}, time.Now())
	rec.ID = uuid.Nil

	require.NoError(t, s.Save(context.Background(), rec))
	assert.NotEqual(t, uuid.Nil, rec.ID)
}

func TestListFilterAndOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, sim := range []string{"reactive", "enforced", "enforced"} {
		rec := record(t, sim, int64(i+1), dartsim.Results{}, base.Add(time.Duration(i)*time.Minute))
		rec.BatchID = "batch-a"
		require.NoError(t, s.Save(ctx, rec))
	}

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].Seed, "newest run first")

	enforced, err := s.List(ctx, Filter{Simulation: "enforced"})
	require.NoError(t, err)
	assert.Len(t, enforced, 2)

	limited, err := s.List(ctx, Filter{BatchID: "batch-a", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.List(ctx, Filter{BatchID: "batch-b"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAggregate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	runs := []dartsim.Results{
		{TargetsDetected: 4, MissionSuccess: true, DecisionTimeAvg: 2},
		{TargetsDetected: 2, MissionSuccess: true, DecisionTimeAvg: 4},
		{TargetsDetected: 0, Destroyed: true, DecisionTimeAvg: 6},
	}
	for i, r := range runs {
		rec := record(t, "enforced", int64(i), r, now.Add(time.Duration(i)*time.Second))
		rec.Overrides = i
		require.NoError(t, s.Save(ctx, rec))
	}

	agg, err := s.Aggregate(ctx, Filter{Simulation: "enforced", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, agg.Runs)
	assert.Equal(t, 2, agg.Successes)
	assert.Equal(t, 1, agg.Destroyed)
	assert.InDelta(t, 2.0, agg.MeanTargets, 1e-9)
	assert.InDelta(t, 4.0, agg.MeanDecisionTime, 1e-9)
	assert.InDelta(t, 1.0, agg.MeanOverrides, 1e-9)
	assert.InDelta(t, 2.0/3.0, agg.SuccessRate(), 1e-9)
	assert.InDelta(t, 2.0/3.0, agg.SurvivalRate(), 1e-9)

	empty, err := s.Aggregate(ctx, Filter{Simulation: "reactive"})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Runs)
	assert.Equal(t, 0.0, empty.SuccessRate())
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := record(t, "enforced", 9, dartsim.Results{}, time.Now())
	require.NoError(t, s.Save(ctx, rec))

	require.NoError(t, s.Delete(ctx, rec.ID))
	_, err := s.Get(ctx, rec.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInfluxSinkBackup(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewInfluxSink(context.Background(), InfluxConfig{}, &buf, nil)
	require.NoError(t, err)
	defer sink.Close()
	assert.False(t, sink.IsValid)

	rec := record(t, "enforced", 42, dartsim.Results{TargetsDetected: 3}, time.Unix(1700000000, 0))
	require.NoError(t, sink.WriteRun(rec))

	observe := sink.StepObserver(rec.ID.String(), "enforced")
	observe.Observe(adaptation.StepRecord{
		Step:     2,
		Position: dartsim.Coordinate{X: 2},
		Decision: nil,
	})

	require.True(t, strings.HasSuffix(buf.String(), "\n"))
	require.NotContains(t, buf.String(), "\n\n", "no blank lines between points")
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], MeasurementRun+","))
	assert.Contains(t, lines[0], "targetsDetected=3i")
	assert.Contains(t, lines[0], "simulation=enforced")
	assert.True(t, strings.HasSuffix(lines[0], " 1700000000000000000"))
	assert.True(t, strings.HasPrefix(lines[1], MeasurementStep+","))
	assert.Contains(t, lines[1], "step=2i")
}

func TestInfluxSinkRequiresBackup(t *testing.T) {
	_, err := NewInfluxSink(context.Background(), InfluxConfig{}, nil, nil)
	assert.Error(t, err)
}
