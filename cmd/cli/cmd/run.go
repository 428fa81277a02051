package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/picogrid/dart-simulations/pkg/logger"
	"github.com/picogrid/dart-simulations/pkg/reporting"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	Long: `Run one mission interactively or with specified parameters.

Parameters come from the mission file (--params, or mission.yaml / dart.yaml
in the working directory), DART_<KEY> environment variables, the selected
profile, --set key=value flags and finally the interactive prompts.`,
	RunE: runSimulation,
}

func init() {
	addMissionFlags(runCmd)
	runCmd.Flags().Bool("save", false, "save the results to the results store")
	runCmd.Flags().BoolP("quiet", "q", false, "do not echo mission events")
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	sim, mission, err := prepareSimulation(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logger.Warn("\nReceived interrupt signal, stopping simulation...")
			if err := sim.Stop(); err != nil {
				logger.Errorf("Failed to stop simulation: %v", err)
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	quiet, _ := cmd.Flags().GetBool("quiet")
	out := sinks{quiet: quiet}

	if save, _ := cmd.Flags().GetBool("save"); save {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		out.store = s
	}

	influx, closeInflux, err := openInflux(ctx)
	if err != nil {
		return err
	}
	defer closeInflux()
	out.influx = influx

	logger.LogSection(fmt.Sprintf("Starting %s", sim.Name()))
	if logger.ParseLevel(mission.Reporting.ConsoleLevel) == logger.DebugLevel {
		logger.LogBlock(mission.String())
	}

	run, err := flyMission(ctx, sim, mission, out, 0)
	if run == nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	printOutcome(run, mission.Reporting.ShowScreen)
	if !quiet {
		run.Events.PrintSummary()
	}

	if errors.Is(err, context.Canceled) {
		logger.Warn("Simulation interrupted; results are partial")
		return nil
	}
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	if out.store != nil {
		logger.Successf("Run saved as %s", run.RunID)
	}
	logger.Success("Simulation completed successfully")
	return nil
}

func printOutcome(run *missionRun, showScreen bool) {
	outcome := run.Outcome
	if showScreen {
		if _, colored := logger.Output(); colored {
			logger.LogBlock(outcome.ColorScreen)
		} else {
			logger.LogBlock(outcome.Screen)
		}
	}

	// Machine-readable lines go to stdout regardless of the log output
	if err := reporting.WriteResults(os.Stdout, outcome.Results); err != nil {
		logger.Errorf("Failed to write results: %v", err)
	}

	if e := outcome.Enforcement; e != nil {
		logger.LogKeyValue("Cumulative survival", fmt.Sprintf("%.4f (bound %.3f, %s)", e.CumulativeSurvival, e.Bound, e.Strategy))
		logger.LogKeyValue("Overrides", fmt.Sprintf("%d of %d epochs", e.Overrides, e.Epochs))
		if e.Shortfalls > 0 {
			logger.Overridef("%d epochs had no tactic reaching the survival target", e.Shortfalls)
		}
	}
}
