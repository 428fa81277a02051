package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/picogrid/dart-simulations/pkg/logger"
	"github.com/picogrid/dart-simulations/pkg/reporting"
	"github.com/picogrid/dart-simulations/pkg/store"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a simulation over consecutive seeds",
	Long: `Run the same mission N times with seeds start, start+1, ... and store
every run under a common batch ID. The aggregate of the batch is printed at
the end; --csv also prints one csv line per run.`,
	RunE: runBatch,
}

func init() {
	addMissionFlags(batchCmd)
	batchCmd.Flags().IntP("runs", "n", 10, "number of missions")
	batchCmd.Flags().Int64("seed", 1, "seed of the first mission")
	batchCmd.Flags().Bool("csv", false, "print the csv line of every run")
	batchCmd.Flags().Bool("no-store", false, "do not persist the runs")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	n, _ := cmd.Flags().GetInt("runs")
	if n < 1 {
		return fmt.Errorf("runs must be at least 1")
	}
	firstSeed, _ := cmd.Flags().GetInt64("seed")
	if firstSeed < 1 {
		return fmt.Errorf("seed must be at least 1")
	}
	printCSV, _ := cmd.Flags().GetBool("csv")
	noStore, _ := cmd.Flags().GetBool("no-store")

	sim, mission, err := prepareSimulation(cmd)
	if err != nil {
		return err
	}
	// Reports are per run; a batch is summarized by the store
	mission.Reporting.EnableReport = false

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := sinks{batchID: uuid.New().String(), quiet: true}
	if !noStore {
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

	logger.LogSection(fmt.Sprintf("Batch of %d %s missions", n, sim.Name()))
	logger.LogKeyValue("Batch", out.batchID)

	var (
		runs  []*missionRun
		lines []string
	)
	bar := logger.NewProgressBar(n, "Missions")
	for i := 0; i < n; i++ {
		run, err := flyMission(ctx, sim, mission, out, firstSeed+int64(i))
		if err != nil {
			bar.Finish()
			if ctx.Err() != nil {
				logger.Warnf("Batch interrupted after %d missions", len(runs))
				break
			}
			return fmt.Errorf("mission %d (seed %d): %w", i+1, firstSeed+int64(i), err)
		}
		runs = append(runs, run)
		lines = append(lines, reporting.CSVLine(run.Outcome.Results))
		bar.Increment()
	}
	if len(runs) == n {
		bar.Finish()
	}

	if printCSV {
		fmt.Println(reporting.CSVHeader)
		for _, line := range lines {
			fmt.Println(line)
		}
	}

	agg := aggregateRuns(runs)
	if out.store != nil {
		stored, err := out.store.Aggregate(ctx, store.Filter{BatchID: out.batchID})
		if err != nil {
			return err
		}
		agg = stored
	}
	printAggregate(agg)
	return nil
}

// aggregateRuns summarizes runs that were not persisted
func aggregateRuns(runs []*missionRun) store.Aggregate {
	var agg store.Aggregate
	for _, run := range runs {
		rec := run.Record
		agg.Runs++
		if rec.MissionSuccess {
			agg.Successes++
		}
		if rec.Destroyed {
			agg.Destroyed++
		}
		agg.MeanTargets += float64(rec.TargetsDetected)
		agg.MeanDecisionTime += rec.DecisionTimeAvg
		agg.MeanOverrides += float64(rec.Overrides)
	}
	if agg.Runs > 0 {
		agg.MeanTargets /= float64(agg.Runs)
		agg.MeanDecisionTime /= float64(agg.Runs)
		agg.MeanOverrides /= float64(agg.Runs)
	}
	return agg
}

func printAggregate(agg store.Aggregate) {
	table := logger.NewTable("RUNS", "SUCCESS", "SURVIVAL", "TARGETS", "DECISION MS", "OVERRIDES")
	table.AddRow(
		fmt.Sprintf("%d", agg.Runs),
		fmt.Sprintf("%.1f%%", agg.SuccessRate()*100),
		fmt.Sprintf("%.1f%%", agg.SurvivalRate()*100),
		fmt.Sprintf("%.2f", agg.MeanTargets),
		fmt.Sprintf("%.3f", agg.MeanDecisionTime),
		fmt.Sprintf("%.2f", agg.MeanOverrides),
	)
	table.Print()
}
