package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/picogrid/dart-simulations/pkg/logger"
	"github.com/picogrid/dart-simulations/pkg/reporting"
	"github.com/picogrid/dart-simulations/pkg/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect stored mission results",
	Long:  `List, show, aggregate and delete the runs saved in the results store`,
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	RunE:  listResults,
}

var resultsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored run (an ID prefix is enough)",
	Args:  cobra.ExactArgs(1),
	RunE:  showResult,
}

var resultsAggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Summarize stored runs",
	RunE:  aggregateResults,
}

var resultsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteResult,
}

func init() {
	for _, c := range []*cobra.Command{resultsListCmd, resultsAggregateCmd} {
		c.Flags().StringP("simulation", "s", "", "only runs of this simulation")
		c.Flags().StringP("batch", "b", "", "only runs of this batch")
	}
	resultsListCmd.Flags().IntP("limit", "l", 20, "maximum number of runs (0 for all)")

	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsShowCmd)
	resultsCmd.AddCommand(resultsAggregateCmd)
	resultsCmd.AddCommand(resultsDeleteCmd)
}

func resultsFilter(cmd *cobra.Command) store.Filter {
	var f store.Filter
	f.Simulation, _ = cmd.Flags().GetString("simulation")
	f.BatchID, _ = cmd.Flags().GetString("batch")
	if cmd.Flags().Lookup("limit") != nil {
		f.Limit, _ = cmd.Flags().GetInt("limit")
	}
	return f
}

func listResults(cmd *cobra.Command, _ []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.List(cmd.Context(), resultsFilter(cmd))
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No runs stored")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tSIMULATION\tSEED\tOUTCOME\tTARGETS\tSURVIVAL")
	_, _ = fmt.Fprintln(w, "--\t-------\t----------\t----\t-------\t-------\t--------")
	for _, rec := range recs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\t%.4f\n",
			rec.ID.String()[:8],
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.Simulation,
			rec.Seed,
			reporting.Outcome(rec.Results()),
			rec.TargetsDetected,
			rec.CumulativeSurvival,
		)
	}
	return w.Flush()
}

func showResult(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	logger.LogSection(fmt.Sprintf("Run %s", rec.ID))
	logger.LogKeyValues(map[string]interface{}{
		"Simulation":          rec.Simulation,
		"Manager":             rec.Manager,
		"Created":             rec.CreatedAt.Format("2006-01-02 15:04:05"),
		"Batch":               rec.BatchID,
		"Seed":                rec.Seed,
		"Outcome":             reporting.Outcome(rec.Results()),
		"Steps":               rec.Steps,
		"Overrides":           rec.Overrides,
		"Cumulative survival": fmt.Sprintf("%.4f", rec.CumulativeSurvival),
	})

	params, err := rec.Parameters()
	if err != nil {
		return err
	}
	logger.LogSubSection("Parameters")
	logger.LogKeyValues(map[string]interface{}{
		"Map size":        params.MapSize,
		"Square map":      params.SquareMap,
		"Altitude levels": params.AltitudeLevels,
		"Threats":         params.NumThreats,
		"Targets":         params.NumTargets,
		"Threat range":    params.Threat.ThreatRange,
		"Sensor range":    params.DownwardLookingSensor.TargetSensorRange,
	})

	logger.LogSubSection("Results")
	return reporting.WriteResults(os.Stdout, rec.Results())
}

func aggregateResults(cmd *cobra.Command, _ []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	agg, err := s.Aggregate(cmd.Context(), resultsFilter(cmd))
	if err != nil {
		return err
	}
	printAggregate(agg)
	return nil
}

func deleteResult(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := s.Delete(cmd.Context(), rec.ID); err != nil {
		return err
	}
	logger.Successf("Run %s deleted", rec.ID)
	return nil
}
