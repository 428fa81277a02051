package dartsim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteWithoutLatency(t *testing.T) {
	tests := []struct {
		tactic Tactic
		start  int
		want   int
	}{
		{IncAlt, 1, 2},
		{DecAlt, 1, 0},
		{IncAlt2, 0, 2},
		{DecAlt2, 3, 1},
		{IncAlt2, 3, 3},
		{DecAlt, 0, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.tactic), func(t *testing.T) {
			cfg := TeamConfiguration{AltitudeLevel: tt.start}
			require.NoError(t, cfg.Execute(tt.tactic, 0, 4))
			assert.Equal(t, tt.want, cfg.AltitudeLevel)
			assert.False(t, cfg.AltitudeChangeInProgress())
		})
	}
}

func TestAltitudeLatency(t *testing.T) {
	cfg := TeamConfiguration{AltitudeLevel: 1}
	require.NoError(t, cfg.Execute(IncAlt, 2, 4))
	assert.Equal(t, 2, cfg.TTCIncAlt)
	assert.Equal(t, 1, cfg.AltitudeLevel)

	cfg.EvolveLatency(4)
	assert.Equal(t, 1, cfg.TTCIncAlt)
	assert.Equal(t, 1, cfg.AltitudeLevel)

	cfg.EvolveLatency(4)
	assert.Equal(t, 0, cfg.TTCIncAlt)
	assert.Equal(t, 2, cfg.AltitudeLevel)

	cfg.EvolveLatency(4)
	assert.Equal(t, 2, cfg.AltitudeLevel, "idle counters must not change altitude")
}

func TestAltitudeChangeInProgress(t *testing.T) {
	cfg := TeamConfiguration{AltitudeLevel: 2}
	require.NoError(t, cfg.Execute(DecAlt, 1, 4))

	err := cfg.Execute(IncAlt, 1, 4)
	assert.True(t, errors.Is(err, ErrAltitudeChangeInProgress))

	require.NoError(t, cfg.Execute(GoTight, 1, 4), "formation changes are allowed during an altitude change")
	assert.Equal(t, Tight, cfg.Formation)
}

func TestFormationAndECM(t *testing.T) {
	cfg := TeamConfiguration{}
	require.NoError(t, cfg.ExecuteAll(NewTacticSet(GoTight, EcmOn), 1, 4))
	assert.Equal(t, Tight, cfg.Formation)
	assert.True(t, cfg.ECM)

	require.NoError(t, cfg.ExecuteAll(NewTacticSet(GoLoose, EcmOff), 1, 4))
	assert.Equal(t, Loose, cfg.Formation)
	assert.False(t, cfg.ECM)
}

func TestExecuteUnknownTactic(t *testing.T) {
	cfg := TeamConfiguration{}
	err := cfg.Execute(Tactic("Hover"), 1, 4)
	assert.True(t, errors.Is(err, ErrUnknownTactic))
}

func TestTeamConfigurationString(t *testing.T) {
	cfg := TeamConfiguration{AltitudeLevel: 3, Formation: Tight, TTCDecAlt: 1}
	assert.Equal(t, "alt=3 formation=TIGHT ecm=false ttc=[0 1 0 0]", cfg.String())
}
