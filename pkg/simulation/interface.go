package simulation

import (
	"context"
	"time"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/config"
	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/logger"
	"github.com/picogrid/dart-simulations/pkg/reporting"
)

// Simulation defines the interface that all simulations must implement
type Simulation interface {
	// Name returns the name of the simulation
	Name() string

	// Description returns a brief description of what the simulation does
	Description() string

	// Configure sets up the simulation from a mission configuration and the
	// parameters collected for it (prompts, profiles or flags)
	Configure(mission *config.MissionConfig, params map[string]interface{}) error

	// Run flies one mission
	Run(ctx context.Context, env Env) (*Outcome, error)

	// Stop gracefully shuts down the simulation
	Stop() error
}

// Env carries what a run needs from its caller
type Env struct {
	RunID string
	Log   logger.Logger

	// Observer receives every step; nil means no observer
	Observer adaptation.Observer

	// EventLog receives simulator diagnostics
	EventLog func(format string, args ...interface{})

	// Seed replaces the configured seed when non-zero
	Seed int64
}

// Outcome is the result of one mission
type Outcome struct {
	Manager     string
	Parameters  dartsim.SimulationParams
	Results     dartsim.Results
	Screen      string
	ColorScreen string
	Enforcement *reporting.EnforcementSummary
	Elapsed     time.Duration
}
