package reactive

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/config"
	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/simulation"
)

//go:embed simulation.yaml
var description []byte

// ReactiveSimulation flies the DART team with the threshold adaptation manager
type ReactiveSimulation struct {
	config *Config
	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewReactiveSimulation creates a new instance of the reactive simulation
func NewReactiveSimulation() simulation.Simulation {
	return &ReactiveSimulation{}
}

// Name returns the simulation name
func (s *ReactiveSimulation) Name() string {
	return "DART Reactive"
}

// Description returns the simulation description
func (s *ReactiveSimulation) Description() string {
	return "Threshold rules on the forward sensors: climb away from threats, descend toward targets"
}

// Configure sets up the simulation with provided parameters
func (s *ReactiveSimulation) Configure(mission *config.MissionConfig, params map[string]interface{}) error {
	cfg, err := ValidateAndParse(mission, params)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	s.config = cfg
	return nil
}

// Run flies one mission
func (s *ReactiveSimulation) Run(ctx context.Context, env simulation.Env) (*simulation.Outcome, error) {
	if s.config == nil {
		return nil, fmt.Errorf("simulation not configured")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	horizon := s.config.Horizon
	return simulation.Fly(ctx, env, s.config.Mission.Simulation, func(dartsim.SimulationParams) (adaptation.Manager, error) {
		return adaptation.NewReactive(horizon), nil
	})
}

// Stop interrupts a running mission
func (s *ReactiveSimulation) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func init() {
	cfg := simulation.MustParseConfig(description)
	if err := simulation.DefaultRegistry.RegisterConfig(cfg, NewReactiveSimulation); err != nil {
		panic(err)
	}
}
