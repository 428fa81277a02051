package planner

import "github.com/picogrid/dart-simulations/pkg/dartsim"

type altitudeTactic struct {
	tactic dartsim.Tactic
	delta  int
}

var (
	altitudeTactics = []altitudeTactic{{dartsim.IncAlt, 1}, {dartsim.DecAlt, -1}}
	twoLevelTactics = []altitudeTactic{{dartsim.IncAlt2, 2}, {dartsim.DecAlt2, -2}}
)

// ConfigurationSpace describes which tactics the team has available
type ConfigurationSpace struct {
	AltitudeLevels  int
	Latency         int
	HasECM          bool
	TwoLevelTactics bool
}

// Feasible lists the tactic sets that can be executed from cfg. The empty set
// comes first. Sets combine at most one altitude change with a formation
// toggle and an ECM toggle.
func (s ConfigurationSpace) Feasible(cfg dartsim.TeamConfiguration) []dartsim.TacticSet {
	altitude := []dartsim.Tactic{""}
	if !cfg.AltitudeChangeInProgress() {
		options := append([]altitudeTactic{}, altitudeTactics...)
		if s.TwoLevelTactics {
			options = append(options, twoLevelTactics...)
		}
		for _, o := range options {
			level := cfg.AltitudeLevel + o.delta
			if level >= 0 && level < s.AltitudeLevels {
				altitude = append(altitude, o.tactic)
			}
		}
	}

	formation := []dartsim.Tactic{""}
	if cfg.Formation == dartsim.Loose {
		formation = append(formation, dartsim.GoTight)
	} else {
		formation = append(formation, dartsim.GoLoose)
	}

	ecm := []dartsim.Tactic{""}
	if s.HasECM {
		if cfg.ECM {
			ecm = append(ecm, dartsim.EcmOff)
		} else {
			ecm = append(ecm, dartsim.EcmOn)
		}
	}

	var sets []dartsim.TacticSet
	for _, a := range altitude {
		for _, f := range formation {
			for _, e := range ecm {
				sets = append(sets, dartsim.NewTacticSet(nonEmpty(a, f, e)...))
			}
		}
	}
	return sets
}

// Apply executes tactics on a copy of cfg
func (s ConfigurationSpace) Apply(cfg dartsim.TeamConfiguration, tactics dartsim.TacticSet) dartsim.TeamConfiguration {
	next := cfg
	// Feasible sets are valid by construction
	_ = next.ExecuteAll(tactics, s.Latency, s.AltitudeLevels)
	return next
}

// Evolve advances the latency counters of a copy of cfg by one period
func (s ConfigurationSpace) Evolve(cfg dartsim.TeamConfiguration) dartsim.TeamConfiguration {
	next := cfg
	next.EvolveLatency(s.AltitudeLevels)
	return next
}

func nonEmpty(tactics ...dartsim.Tactic) []dartsim.Tactic {
	out := tactics[:0]
	for _, t := range tactics {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
