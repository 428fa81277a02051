package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/dart-simulations/pkg/dartsim"
)

func testParams(latency int) dartsim.SimulationParams {
	p := dartsim.DefaultParams()
	p.AltitudeLevels = 4
	p.ChangeAltitudeLatencyPeriods = latency
	p.Threat.ThreatRange = 3
	p.Threat.DestructionFormationFactor = 1.5
	p.DownwardLookingSensor.TargetSensorRange = 4
	p.DownwardLookingSensor.TargetDetectionFormationFactor = 1.2
	return p
}

func TestFeasibleAtTopLevel(t *testing.T) {
	space := ConfigurationSpace{AltitudeLevels: 4, Latency: 1}
	sets := space.Feasible(dartsim.TeamConfiguration{AltitudeLevel: 3})

	require.Len(t, sets, 4)
	assert.True(t, sets[0].Empty(), "empty set comes first")
	for _, s := range sets {
		assert.False(t, s.Contains(dartsim.IncAlt), "cannot climb above the top level")
		assert.False(t, s.Contains(dartsim.EcmOn), "ECM not available")
		assert.NoError(t, s.Validate())
	}
}

func TestFeasibleWithECMAndTwoLevels(t *testing.T) {
	space := ConfigurationSpace{AltitudeLevels: 4, Latency: 1, HasECM: true, TwoLevelTactics: true}
	sets := space.Feasible(dartsim.TeamConfiguration{AltitudeLevel: 1, Formation: dartsim.Tight, ECM: true})

	assert.Len(t, sets, 16)
	contains := func(want dartsim.TacticSet) bool {
		for _, s := range sets {
			if s.Equal(want) {
				return true
			}
		}
		return false
	}
	assert.True(t, contains(dartsim.NewTacticSet(dartsim.IncAlt2, dartsim.GoLoose, dartsim.EcmOff)))
	assert.False(t, contains(dartsim.NewTacticSet(dartsim.DecAlt2)), "level -1 is not reachable")
}

func TestFeasibleDuringAltitudeChange(t *testing.T) {
	space := ConfigurationSpace{AltitudeLevels: 4, Latency: 2}
	sets := space.Feasible(dartsim.TeamConfiguration{AltitudeLevel: 1, TTCIncAlt: 1})

	require.Len(t, sets, 2)
	assert.True(t, sets[1].Equal(dartsim.NewTacticSet(dartsim.GoTight)))
}

func TestLookaheadSurvivalWithoutLatency(t *testing.T) {
	p := testParams(0)
	planner := NewLookahead(ConfigurationSpace{AltitudeLevels: 4, Latency: 0})
	model := StaticModel{{ProbThreat: 1}}

	got := planner.Evaluate(dartsim.TeamConfiguration{AltitudeLevel: 0}, model, NewSurvivalUtility(p), 1)
	assert.True(t, got.Equal(dartsim.NewTacticSet(dartsim.GoTight, dartsim.IncAlt)), "got %s", got)

	outcomes := planner.CandidateOutcomes()
	require.Len(t, outcomes, 4)
	assert.True(t, outcomes[0].Tactics.Empty())
	assert.InDelta(t, 1.0/3.0, outcomes[0].Probability, 1e-12)
	for _, o := range outcomes {
		if o.Tactics.Equal(got) {
			assert.InDelta(t, 1-(1.0/3.0)/1.5, o.Probability, 1e-12)
		}
	}
}

func TestLookaheadIsLatencyAware(t *testing.T) {
	p := testParams(1)
	planner := NewLookahead(ConfigurationSpace{AltitudeLevels: 4, Latency: 1})
	model := StaticModel{{ProbThreat: 1}}

	got := planner.Evaluate(dartsim.TeamConfiguration{AltitudeLevel: 0}, model, NewSurvivalUtility(p), 1)
	assert.True(t, got.Equal(dartsim.NewTacticSet(dartsim.GoTight)),
		"climbing does not help before the latency expires, got %s", got)
}

func TestLookaheadDescendsForTarget(t *testing.T) {
	p := testParams(1)
	planner := NewLookahead(ConfigurationSpace{AltitudeLevels: 4, Latency: 1})
	model := StaticModel{{}, {ProbTarget: 1}}

	got := planner.Evaluate(dartsim.TeamConfiguration{AltitudeLevel: 3}, model, NewDetectionUtility(p, 0), 5)
	assert.True(t, got.Equal(dartsim.NewTacticSet(dartsim.DecAlt)), "got %s", got)

	for _, o := range planner.CandidateOutcomes() {
		if o.Tactics.Equal(got) {
			assert.InDelta(t, 0.25, o.Probability, 1e-12, "level 2 sees a target with p=(4-3)/4")
		}
	}
}

func TestLookaheadPrefersEmptySetOnTies(t *testing.T) {
	p := testParams(1)
	planner := NewLookahead(ConfigurationSpace{AltitudeLevels: 4, Latency: 1})
	model := StaticModel{{}, {}, {}}

	got := planner.Evaluate(dartsim.TeamConfiguration{AltitudeLevel: 2}, model, NewSurvivalUtility(p), 3)
	assert.True(t, got.Empty(), "got %s", got)
	for _, o := range planner.CandidateOutcomes() {
		assert.Equal(t, 1.0, o.Probability)
	}
}

func TestUtilityFunctions(t *testing.T) {
	p := testParams(1)
	cfg := dartsim.TeamConfiguration{AltitudeLevel: 0}
	env := EnvironmentState{ProbThreat: 0.5, ProbTarget: 0.5}

	d := NewDetectionUtility(p, DefaultFinalReward)
	assert.InDelta(t, 0.5*0.75, d.AdditiveUtility(cfg, env, 0), 1e-12)
	assert.InDelta(t, 1-0.5*2.0/3.0, d.MultiplicativeUtility(cfg, env, 0), 1e-12)
	assert.Equal(t, DefaultFinalReward, d.FinalReward(cfg, env, 5))

	s := NewSurvivalUtility(p)
	assert.Equal(t, 0.0, s.AdditiveUtility(cfg, env, 0))
	assert.Equal(t, 1.0, s.FinalReward(cfg, env, 5))
}
