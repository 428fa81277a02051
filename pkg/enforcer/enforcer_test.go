package enforcer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/picogrid/dart-simulations/pkg/dartsim"
)

var (
	nop      = dartsim.NewTacticSet()
	tight    = dartsim.NewTacticSet(dartsim.GoTight)
	climb    = dartsim.NewTacticSet(dartsim.IncAlt)
	ecmClimb = dartsim.NewTacticSet(dartsim.EcmOn, dartsim.IncAlt)
)

func newEnforcer(t *testing.T, bound float64, opts ...Option) *Enforcer {
	t.Helper()
	opts = append([]Option{WithMeter(noop.NewMeterProvider().Meter("test"))}, opts...)
	e, err := New(bound, opts...)
	require.NoError(t, err)
	return e
}

func TestAmortizedTargetPrefersSmallestSufficientCandidate(t *testing.T) {
	e := newEnforcer(t, 0.81)
	e.Commit(0.9)
	e.Commit(0.81)

	candidates := []Outcome{
		{Tactics: nop, Probability: 0.95},
		{Tactics: tight, Probability: 0.81},
		{Tactics: climb, Probability: 0.5},
	}
	d := e.Decide(climb, candidates)

	wantTarget := 3*math.Log(0.81) - (math.Log(0.9) + math.Log(0.81))
	assert.InDelta(t, wantTarget, d.Target, 1e-12)
	assert.True(t, d.Tactics.Equal(tight), "got %s", d.Tactics)
	assert.Equal(t, 1, d.Index)
	assert.True(t, d.Passed)
	assert.False(t, d.PassThrough)
	assert.True(t, d.Overridden(climb))
	assert.InDelta(t, math.Log(0.81)-wantTarget, d.Delta, 1e-12)
	assert.GreaterOrEqual(t, d.Delta, 0.0)
}

func TestPassThrough(t *testing.T) {
	e := newEnforcer(t, 0.9)

	candidates := []Outcome{
		{Tactics: nop, Probability: 0.91},
		{Tactics: ecmClimb, Probability: 0.99},
	}
	d := e.Decide(ecmClimb, candidates)

	assert.True(t, d.PassThrough)
	assert.True(t, d.Tactics.Equal(ecmClimb))
	assert.Equal(t, 0.99, d.Probability)
	assert.False(t, d.Overridden(ecmClimb))
}

func TestMissionBelowBoundIsNotPassedThrough(t *testing.T) {
	e := newEnforcer(t, 0.9)

	d := e.Decide(climb, []Outcome{
		{Tactics: climb, Probability: 0.85},
		{Tactics: nop, Probability: 0.92},
	})
	assert.False(t, d.PassThrough)
	assert.True(t, d.Tactics.Equal(nop))
}

func TestNoCandidatePasses(t *testing.T) {
	e := newEnforcer(t, 0.9)

	d := e.Decide(climb, []Outcome{
		{Tactics: climb, Probability: 0.5},
		{Tactics: tight, Probability: 0.7},
		{Tactics: nop, Probability: 0.6},
	})
	assert.False(t, d.Passed)
	assert.True(t, d.Tactics.Equal(tight))
	assert.Less(t, d.Delta, 0.0)
}

func TestZeroInHistoryPicksMostLikelySurvival(t *testing.T) {
	e := newEnforcer(t, 0.9)
	e.Commit(0)

	d := e.Decide(climb, []Outcome{
		{Tactics: climb, Probability: 0.2},
		{Tactics: tight, Probability: 0.6},
		{Tactics: nop, Probability: 0.4},
	})
	assert.True(t, math.IsInf(d.Target, 1))
	assert.False(t, d.Passed)
	assert.True(t, d.Tactics.Equal(tight))
	assert.False(t, math.IsNaN(d.Delta))
}

func TestAllZeroCandidatesReturnsFirst(t *testing.T) {
	e := newEnforcer(t, 0.9)

	d := e.Decide(tight, []Outcome{
		{Tactics: climb, Probability: 0},
		{Tactics: tight, Probability: 0},
	})
	assert.True(t, d.Tactics.Equal(climb))
	assert.Equal(t, 0, d.Index)
	assert.True(t, math.IsInf(d.Delta, -1))
}

func TestEmptyCandidatesPanics(t *testing.T) {
	e := newEnforcer(t, 0.9)
	assert.Panics(t, func() { e.Decide(nop, nil) })
}

func TestDecideIsTotal(t *testing.T) {
	sets := []dartsim.TacticSet{nop, tight, climb, ecmClimb}
	rng := rand.New(rand.NewSource(11))

	for _, name := range StrategyNames() {
		strategy, err := StrategyByName(name)
		require.NoError(t, err)

		for trial := 0; trial < 200; trial++ {
			e := newEnforcer(t, 0.05+0.95*rng.Float64(), WithStrategy(strategy))
			for h := rng.Intn(5); h > 0; h-- {
				e.Commit(rng.Float64())
			}

			n := 1 + rng.Intn(len(sets))
			candidates := make([]Outcome, n)
			for i := range candidates {
				p := rng.Float64()
				if rng.Intn(10) == 0 {
					p = 0
				}
				candidates[i] = Outcome{Tactics: sets[i], Probability: p}
			}

			d := e.Decide(sets[rng.Intn(len(sets))], candidates)
			require.GreaterOrEqual(t, d.Index, 0, "%s trial %d", name, trial)
			require.Less(t, d.Index, n, "%s trial %d", name, trial)
			assert.True(t, d.Tactics.Equal(candidates[d.Index].Tactics))
			assert.False(t, math.IsNaN(d.Target), "%s trial %d", name, trial)
		}
	}
}

func TestDecideDoesNotCommit(t *testing.T) {
	e := newEnforcer(t, 0.9)
	e.Decide(nop, []Outcome{{Tactics: nop, Probability: 0.95}})
	assert.Empty(t, e.History())

	e.Commit(0.95)
	e.Commit(0.9)
	assert.Equal(t, []float64{0.95, 0.9}, e.History())
	assert.InDelta(t, 0.855, e.CumulativeSurvival(), 1e-12)

	e.Reset()
	assert.Empty(t, e.History())
	assert.Equal(t, 1.0, e.CumulativeSurvival())
}

func TestNewRejectsInvalidBound(t *testing.T) {
	for _, bound := range []float64{0, -0.5, 1.5, math.NaN()} {
		_, err := New(bound)
		assert.Error(t, err, "bound %v", bound)
	}
}
