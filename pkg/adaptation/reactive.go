package adaptation

import (
	"fmt"

	"github.com/picogrid/dart-simulations/pkg/dartsim"
)

// DefaultHorizon is the number of cells the forward sensors read per decision
const DefaultHorizon = 5

// Reactive climbs away from sensed threats, descends toward sensed targets
// and flies tight over an immediate threat.
type Reactive struct {
	Horizon int
}

// NewReactive creates a reactive manager reading horizon cells ahead
func NewReactive(horizon int) *Reactive {
	if horizon < 1 {
		horizon = DefaultHorizon
	}
	return &Reactive{Horizon: horizon}
}

func (r *Reactive) Name() string { return "reactive" }

func (r *Reactive) Decide(sim *dartsim.Simulator) (dartsim.TacticSet, error) {
	state := sim.State()
	cfg := state.Config
	top := sim.Parameters().AltitudeLevels - 1

	threats := sim.ReadForwardThreatSensor(r.Horizon)
	targets := sim.ReadForwardTargetSensor(r.Horizon)

	var tactics []dartsim.Tactic
	if !cfg.AltitudeChangeInProgress() {
		if anyTrue(threats) && cfg.AltitudeLevel < top {
			tactics = append(tactics, dartsim.IncAlt)
		} else if anyTrue(targets) && cfg.AltitudeLevel > 0 {
			tactics = append(tactics, dartsim.DecAlt)
		}
	}

	if len(threats) > 0 && threats[0] {
		if cfg.Formation != dartsim.Tight {
			tactics = append(tactics, dartsim.GoTight)
		}
	} else if cfg.Formation != dartsim.Loose {
		tactics = append(tactics, dartsim.GoLoose)
	}

	set := dartsim.NewTacticSet(tactics...)
	if err := sim.CheckTactics(set); err != nil {
		return set, fmt.Errorf("reactive tactics %s: %w", set, err)
	}
	return set, nil
}

func anyTrue(readings []bool) bool {
	for _, r := range readings {
		if r {
			return true
		}
	}
	return false
}
