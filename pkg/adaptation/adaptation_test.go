package adaptation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/picogrid/dart-simulations/pkg/dartsim"
)

// constRand never triggers a probabilistic effect below 0.999
type constRand struct{}

func (constRand) Float64() float64 { return 0.999 }
func (constRand) Intn(int) int     { return 0 }

func perfectParams(mapSize, latency int) dartsim.SimulationParams {
	p := dartsim.DefaultParams()
	p.MapSize = mapSize
	p.AltitudeLevels = 4
	p.ChangeAltitudeLatencyPeriods = latency
	p.LongRangeSensor = dartsim.LongRangeSensorParams{}
	p.NumThreats = 0
	p.NumTargets = 0
	p.Seed = 7
	return p
}

func newSim(t *testing.T, p dartsim.SimulationParams, threats, targets []dartsim.Coordinate) *dartsim.Simulator {
	t.Helper()
	size := p.EnvironmentSize()
	threatEnv, targetEnv := dartsim.NewEnvironment(size), dartsim.NewEnvironment(size)
	for _, c := range threats {
		threatEnv.SetAt(c, true)
	}
	for _, c := range targets {
		targetEnv.SetAt(c, true)
	}
	route := dartsim.NewRoute(dartsim.Coordinate{}, 1, 0, p.MapSize)
	sim, err := dartsim.NewWithEnvironment(p, route, threatEnv, targetEnv, dartsim.WithRand(constRand{}))
	require.NoError(t, err)
	return sim
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := NewRunner(WithRunnerMeter(noop.NewMeterProvider().Meter("test")))
	require.NoError(t, err)
	return r
}

func TestReactiveRules(t *testing.T) {
	tests := []struct {
		name    string
		threats []dartsim.Coordinate
		targets []dartsim.Coordinate
		want    dartsim.TacticSet
	}{
		{"nothing ahead", nil, nil, dartsim.NewTacticSet()},
		{"target ahead descends", nil, []dartsim.Coordinate{{X: 2}}, dartsim.NewTacticSet(dartsim.DecAlt)},
		{"immediate threat at the top goes tight", []dartsim.Coordinate{{X: 0}}, nil, dartsim.NewTacticSet(dartsim.GoTight)},
		{"threat ahead at the top still descends for a target", []dartsim.Coordinate{{X: 3}}, []dartsim.Coordinate{{X: 1}}, dartsim.NewTacticSet(dartsim.DecAlt)},
		{"target beyond the horizon is ignored", nil, []dartsim.Coordinate{{X: 7}}, dartsim.NewTacticSet()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newSim(t, perfectParams(10, 0), tt.threats, tt.targets)
			got, err := NewReactive(0).Decide(sim)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestReactiveClimbsAndLoosens(t *testing.T) {
	sim := newSim(t, perfectParams(10, 0), []dartsim.Coordinate{{X: 1}}, nil)
	mgr := NewReactive(DefaultHorizon)

	sim.Step(dartsim.NewTacticSet(dartsim.DecAlt, dartsim.GoTight), 0)
	require.Equal(t, 2, sim.State().Config.AltitudeLevel)

	// the threat is now underfoot
	got, err := mgr.Decide(sim)
	require.NoError(t, err)
	assert.True(t, dartsim.NewTacticSet(dartsim.IncAlt).Equal(got), "got %s", got)

	sim.Step(got, 0)
	got, err = mgr.Decide(sim)
	require.NoError(t, err)
	assert.True(t, dartsim.NewTacticSet(dartsim.GoLoose).Equal(got), "got %s", got)
}

func TestReactiveWaitsForAltitudeChange(t *testing.T) {
	sim := newSim(t, perfectParams(10, 2), nil, []dartsim.Coordinate{{X: 4}})
	mgr := NewReactive(DefaultHorizon)

	first, err := mgr.Decide(sim)
	require.NoError(t, err)
	require.True(t, dartsim.NewTacticSet(dartsim.DecAlt).Equal(first))
	sim.Step(first, 0)
	require.True(t, sim.State().Config.AltitudeChangeInProgress())

	second, err := mgr.Decide(sim)
	require.NoError(t, err)
	assert.True(t, second.Empty(), "expected no altitude tactic while one is pending, got %s", second)
}

func TestRunCompletesRoute(t *testing.T) {
	sim := newSim(t, perfectParams(10, 1), nil, []dartsim.Coordinate{{X: 5}, {X: 8}})

	var records []StepRecord
	results, err := newRunner(t).Run(context.Background(), sim, NewReactive(DefaultHorizon), ObserverFunc(func(rec StepRecord) {
		records = append(records, rec)
	}))
	require.NoError(t, err)

	assert.Equal(t, 10, results.Steps)
	assert.False(t, results.Destroyed)
	require.Len(t, records, 10)
	for i, rec := range records {
		assert.Equal(t, i+1, rec.Step)
		assert.Equal(t, dartsim.Coordinate{X: i}, rec.Position)
		assert.Nil(t, rec.Decision)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	sim := newSim(t, perfectParams(10, 1), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := newRunner(t).Run(ctx, sim, NewReactive(DefaultHorizon), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, results.Steps)
}

// repeatManager issues the same tactics every step
type repeatManager struct{ tactics dartsim.TacticSet }

func (m repeatManager) Name() string { return "repeat" }

func (m repeatManager) Decide(*dartsim.Simulator) (dartsim.TacticSet, error) {
	return m.tactics, nil
}

func TestRunReportsRejectedTactics(t *testing.T) {
	sim := newSim(t, perfectParams(10, 2), nil, nil)

	results, err := newRunner(t).Run(context.Background(), sim, repeatManager{dartsim.NewTacticSet(dartsim.DecAlt)}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, dartsim.ErrAltitudeChangeInProgress)
	assert.Equal(t, 1, results.Steps)
	assert.False(t, results.Destroyed)
}

func TestEnforcedCommitsRealizedSurvival(t *testing.T) {
	p := perfectParams(10, 1)
	p.Threat.ThreatRange = 5
	sim := newSim(t, p, []dartsim.Coordinate{{X: 0}}, nil)

	mgr, err := NewEnforced(p, DefaultEnforcedConfig())
	require.NoError(t, err)

	first, err := mgr.Decide(sim)
	require.NoError(t, err)
	assert.Empty(t, mgr.Enforcer().History(), "nothing to commit before the first step")

	sim.Step(first, 0)
	threat, used := sim.WasThereAThreat()
	require.True(t, threat)

	_, err = mgr.Decide(sim)
	require.NoError(t, err)
	history := mgr.Enforcer().History()
	require.Len(t, history, 1)
	want := 1 - sim.Parameters().ThreatModel().Probability(used)
	assert.InDelta(t, want, history[0], 1e-12)
	assert.Less(t, history[0], 1.0)

	_, decided := mgr.LastDecision()
	assert.True(t, decided)
}

func TestEnforcedRunCommitsEveryEpoch(t *testing.T) {
	p := perfectParams(12, 1)
	sim := newSim(t, p, []dartsim.Coordinate{{X: 6}}, []dartsim.Coordinate{{X: 3}, {X: 9}})

	mgr, err := NewEnforced(p, DefaultEnforcedConfig())
	require.NoError(t, err)

	decisions := 0
	results, err := newRunner(t).Run(context.Background(), sim, mgr, ObserverFunc(func(rec StepRecord) {
		if rec.Decision != nil {
			decisions++
		}
	}))
	require.NoError(t, err)

	assert.Equal(t, results.Steps, decisions)
	history := mgr.Enforcer().History()
	require.Len(t, history, results.Steps, "Finish commits the last epoch")
	for i, h := range history {
		if i != 6 {
			assert.Equal(t, 1.0, h, "epoch %d had no threat", i)
		}
	}
}

func TestEnforcedConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EnforcedConfig)
		wantErr bool
	}{
		{"defaults", func(*EnforcedConfig) {}, false},
		{"zero horizon", func(c *EnforcedConfig) { c.Horizon = 0 }, true},
		{"no observations", func(c *EnforcedConfig) { c.ObservationsPerCycle = 0 }, true},
		{"bound above one", func(c *EnforcedConfig) { c.SurvivalBound = 1.5 }, true},
		{"zero bound", func(c *EnforcedConfig) { c.SurvivalBound = 0 }, true},
		{"negative reward", func(c *EnforcedConfig) { c.FinalReward = -1 }, true},
		{"unknown approximation", func(c *EnforcedConfig) { c.Approximation = "gaussian" }, true},
		{"unknown strategy", func(c *EnforcedConfig) { c.Strategy = "greedy" }, true},
		{"laplace", func(c *EnforcedConfig) { c.Approximation = "laplace" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEnforcedConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
