package enforced

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/config"
	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/logger"
	"github.com/picogrid/dart-simulations/pkg/reporting"
	"github.com/picogrid/dart-simulations/pkg/simulation"
)

//go:embed simulation.yaml
var description []byte

// EnforcedSimulation flies the DART team with the mission planner and the
// survivability enforcer
type EnforcedSimulation struct {
	config *Config
	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewEnforcedSimulation creates a new instance of the enforced simulation
func NewEnforcedSimulation() simulation.Simulation {
	return &EnforcedSimulation{}
}

// Name returns the simulation name
func (s *EnforcedSimulation) Name() string {
	return "DART Survivability Enforced"
}

// Description returns the simulation description
func (s *EnforcedSimulation) Description() string {
	return "Lookahead mission planner with tactics checked against a mission survival bound"
}

// Configure sets up the simulation with provided parameters
func (s *EnforcedSimulation) Configure(mission *config.MissionConfig, params map[string]interface{}) error {
	cfg, err := ValidateAndParse(mission, params)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	s.config = cfg
	return nil
}

// Run flies one mission
func (s *EnforcedSimulation) Run(ctx context.Context, env simulation.Env) (*simulation.Outcome, error) {
	if s.config == nil {
		return nil, fmt.Errorf("simulation not configured")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	log := env.Log
	if log == nil {
		log = logger.Discard()
	}

	shortfalls := 0
	counter := adaptation.ObserverFunc(func(rec adaptation.StepRecord) {
		if rec.Decision != nil && !rec.Decision.Passed {
			shortfalls++
		}
	})
	if env.Observer != nil {
		env.Observer = adaptation.Observers{counter, env.Observer}
	} else {
		env.Observer = counter
	}

	var mgr *adaptation.Enforced
	outcome, err := simulation.Fly(ctx, env, s.config.Mission.Simulation, func(params dartsim.SimulationParams) (adaptation.Manager, error) {
		m, err := adaptation.NewEnforced(params, s.config.Enforced, adaptation.WithManagerLogger(log))
		if err != nil {
			return nil, err
		}
		mgr = m
		return m, nil
	})
	if outcome != nil && mgr != nil {
		enf := mgr.Enforcer()
		outcome.Enforcement = &reporting.EnforcementSummary{
			Epochs:             len(enf.History()),
			Overrides:          mgr.Overrides(),
			Shortfalls:         shortfalls,
			CumulativeSurvival: enf.CumulativeSurvival(),
			Bound:              enf.Bound(),
			Strategy:           enf.Strategy().Name(),
		}
		log.WithFields(map[string]interface{}{
			"overrides":  mgr.Overrides(),
			"shortfalls": shortfalls,
			"survival":   fmt.Sprintf("%.4f", enf.CumulativeSurvival()),
		}).Debug("Enforcement finished")
	}
	return outcome, err
}

// Stop interrupts a running mission
func (s *EnforcedSimulation) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func init() {
	cfg := simulation.MustParseConfig(description)
	if err := simulation.DefaultRegistry.RegisterConfig(cfg, NewEnforcedSimulation); err != nil {
		panic(err)
	}
}
