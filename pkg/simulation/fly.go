package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/logger"
)

// ManagerFactory creates the adaptation manager for normalized parameters
type ManagerFactory func(params dartsim.SimulationParams) (adaptation.Manager, error)

// Fly builds a simulator for params and drives it to the end of its route
// with the manager returned by newManager. A cancelled run returns the
// partial outcome along with the context error.
func Fly(ctx context.Context, env Env, params dartsim.SimulationParams, newManager ManagerFactory) (*Outcome, error) {
	log := env.Log
	if log == nil {
		log = logger.Discard()
	}
	if env.Seed != 0 {
		params.Seed = env.Seed
	}

	var opts []dartsim.Option
	if env.EventLog != nil {
		opts = append(opts, dartsim.WithEventLog(env.EventLog))
	}
	sim, err := dartsim.New(params, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulator: %w", err)
	}

	mgr, err := newManager(sim.Parameters())
	if err != nil {
		return nil, fmt.Errorf("failed to create adaptation manager: %w", err)
	}

	runner, err := adaptation.NewRunner(adaptation.WithRunnerLogger(log))
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"manager": mgr.Name(),
		"seed":    sim.Parameters().Seed,
		"length":  sim.Route().Len(),
	}).Debug("Mission starting")

	start := time.Now()
	results, runErr := runner.Run(ctx, sim, mgr, env.Observer)
	outcome := &Outcome{
		Manager:     mgr.Name(),
		Parameters:  sim.Parameters(),
		Results:     results,
		Screen:      sim.ScreenOutput(),
		ColorScreen: sim.ColorScreenOutput(),
		Elapsed:     time.Since(start),
	}
	return outcome, runErr
}
