package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/config"
	"github.com/picogrid/dart-simulations/pkg/logger"
	"github.com/picogrid/dart-simulations/pkg/reporting"
	"github.com/picogrid/dart-simulations/pkg/simulation"
	"github.com/picogrid/dart-simulations/pkg/store"
	"github.com/picogrid/dart-simulations/pkg/utils"

	// Import simulations to register them
	_ "github.com/picogrid/dart-simulations/cmd/enforced"
	_ "github.com/picogrid/dart-simulations/cmd/reactive"
)

// addMissionFlags registers the flags shared by run and batch
func addMissionFlags(c *cobra.Command) {
	c.Flags().StringP("simulation", "s", "", "simulation name to run")
	c.Flags().StringP("params", "p", "", "mission file (YAML)")
	c.Flags().String("profile", "", "saved parameter profile to apply")
	c.Flags().StringToString("set", nil, "parameter override key=value (repeatable)")
}

// loadMission reads the mission file and applies, in order, the environment,
// the selected profile and the --set overrides
func loadMission(cmd *cobra.Command) (*config.MissionConfig, error) {
	path, _ := cmd.Flags().GetString("params")
	mission, err := config.LoadConfigOrDefault(path)
	if err != nil {
		return nil, err
	}

	profileName, _ := cmd.Flags().GetString("profile")
	if profileName == "" {
		if profiles, err := config.LoadProfiles(); err == nil {
			profileName = profiles.Selected
		}
	}
	if profileName != "" {
		profiles, err := config.LoadProfiles()
		if err != nil {
			return nil, err
		}
		profile, ok := profiles.Find(profileName)
		if !ok {
			return nil, fmt.Errorf("profile %s not found", profileName)
		}
		overrides, err := profile.Overrides()
		if err != nil {
			return nil, err
		}
		if err := config.MergeWithCLIOverrides(mission, overrides); err != nil {
			return nil, fmt.Errorf("profile %s: %w", profileName, err)
		}
		logger.Debugf("Applied profile %s", profileName)
	}

	set, _ := cmd.Flags().GetStringToString("set")
	overrides, err := config.ParseOverrides(set)
	if err != nil {
		return nil, err
	}
	if err := config.MergeWithCLIOverrides(mission, overrides); err != nil {
		return nil, err
	}

	if err := mission.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mission: %w", err)
	}
	return mission, nil
}

// prepareSimulation selects, parameterizes and configures a simulation
func prepareSimulation(cmd *cobra.Command) (simulation.Simulation, *config.MissionConfig, error) {
	simName, err := selectSimulation(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select simulation: %w", err)
	}

	sim, err := simulation.DefaultRegistry.Get(simName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get simulation: %w", err)
	}

	info, err := utils.FindSimulation(simulation.DefaultRegistry, simName)
	if err != nil {
		return nil, nil, err
	}

	mission, err := loadMission(cmd)
	if err != nil {
		return nil, nil, err
	}

	params, err := utils.PromptForParameters(info.Config.Parameters, mission.Values())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get parameters: %w", err)
	}

	if err := sim.Configure(mission, params); err != nil {
		return nil, nil, fmt.Errorf("failed to configure simulation: %w", err)
	}
	return sim, mission, nil
}

func selectSimulation(cmd *cobra.Command) (string, error) {
	// Check if simulation is specified via flag
	simName, _ := cmd.Flags().GetString("simulation")
	if simName != "" {
		return simName, nil
	}

	simInfos, err := utils.DiscoverSimulations(simulation.DefaultRegistry)
	if err != nil {
		return "", err
	}

	if len(simInfos) == 0 {
		return "", fmt.Errorf("no simulations found")
	}
	if !utils.Interactive() {
		return "", fmt.Errorf("no simulation given; use --simulation")
	}

	// Build options for selection
	options := make([]string, len(simInfos))
	descriptions := make(map[string]string)

	for i, info := range simInfos {
		options[i] = info.Config.Name
		descriptions[info.Config.Name] = info.Config.Description
	}

	// Interactive selection
	var selected string
	prompt := &survey.Select{
		Message: "Select simulation:",
		Options: options,
		Description: func(value string, index int) string {
			return descriptions[value]
		},
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}

	return selected, nil
}

// sinks are the optional outputs of a mission
type sinks struct {
	store   *store.Store
	influx  *store.InfluxSink
	batchID string
	quiet   bool
}

func openStore() (*store.Store, error) {
	dsn := viper.GetString(keyStoreDSN)
	return store.Open(dsn, store.WithLogger(logger.WithPrefix("store")))
}

// openInflux returns nil when neither a server nor a backup file is configured
func openInflux(ctx context.Context) (*store.InfluxSink, func(), error) {
	cfg := store.InfluxConfig{
		URL:    viper.GetString(keyInfluxURL),
		Token:  viper.GetString(keyInfluxToken),
		Org:    viper.GetString(keyInfluxOrg),
		Bucket: viper.GetString(keyInfluxBucket),
	}
	backupPath := viper.GetString(keyInfluxBackup)
	if cfg.URL == "" && backupPath == "" {
		return nil, func() {}, nil
	}

	var (
		backup io.Writer
		closer io.Closer
	)
	if backupPath != "" {
		f, err := os.OpenFile(backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open influx backup file: %w", err)
		}
		backup, closer = f, f
	}

	sink, err := store.NewInfluxSink(ctx, cfg, backup, logger.WithPrefix("influx"))
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, err
	}
	return sink, func() {
		sink.Close()
		if closer != nil {
			_ = closer.Close()
		}
	}, nil
}

// missionRun is one flown mission with its records
type missionRun struct {
	RunID   string
	Outcome *simulation.Outcome
	Record  *store.RunRecord
	Events  *reporting.MissionLogger
}

// flyMission runs sim once and feeds the configured outputs. A cancelled
// mission still reports its partial results.
func flyMission(ctx context.Context, sim simulation.Simulation, mission *config.MissionConfig, out sinks, seed int64) (*missionRun, error) {
	runID := uuid.New()
	run := &missionRun{
		RunID:  runID.String(),
		Events: reporting.NewMissionLogger(runID.String()),
	}
	run.Events.SetQuiet(out.quiet)

	observers := adaptation.Observers{adaptation.ObserverFunc(run.Events.Observe)}

	eventsFile := viper.GetString(keyEventsFile)
	if mission.Reporting.EventsFile != "" {
		eventsFile = mission.Reporting.EventsFile
	}
	var stream *reporting.EventStream
	if eventsFile != "" {
		s, err := reporting.OpenEventStream(eventsFile, run.RunID)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		stream = s
		observers = append(observers, adaptation.ObserverFunc(s.Observe))
	}
	if out.influx != nil {
		observers = append(observers, out.influx.StepObserver(run.RunID, sim.Name()))
	}

	env := simulation.Env{
		RunID:    run.RunID,
		Log:      logger.WithField("run", run.RunID[:8]),
		Observer: observers,
		EventLog: run.Events.LogSystem,
		Seed:     seed,
	}
	outcome, runErr := sim.Run(ctx, env)
	if outcome == nil {
		return nil, runErr
	}
	run.Outcome = outcome

	if stream != nil {
		stream.Finish(outcome.Results, outcome.Elapsed)
	}

	rec, err := store.NewRunRecord(sim.Name(), outcome.Manager, outcome.Parameters, outcome.Results)
	if err != nil {
		return nil, err
	}
	rec.ID = runID
	rec.BatchID = out.batchID
	rec.CreatedAt = time.Now()
	if e := outcome.Enforcement; e != nil {
		rec.Overrides = e.Overrides
		rec.CumulativeSurvival = e.CumulativeSurvival
	}
	run.Record = rec

	if out.store != nil && runErr == nil {
		if err := out.store.Save(ctx, rec); err != nil {
			return run, err
		}
	}
	if out.influx != nil {
		if err := out.influx.WriteRun(rec); err != nil {
			logger.Warnf("Failed to write run to InfluxDB: %v", err)
		}
	}

	if mission.Reporting.EnableReport {
		if err := saveReport(run, sim.Name(), mission); err != nil {
			return run, err
		}
	}
	return run, runErr
}

func saveReport(run *missionRun, simName string, mission *config.MissionConfig) error {
	dir := mission.Reporting.ReportOutputPath
	if dir == "" {
		dir = viper.GetString(keyReportDir)
	}
	format := mission.Reporting.ReportFormat
	if f := viper.GetString(keyReportFormat); f != "" {
		format = f
	}

	generator := reporting.NewReportGenerator(run.Events, reporting.ReportConfig{
		OutputDir:  dir,
		Format:     format,
		Simulation: simName,
		Manager:    run.Outcome.Manager,
		Parameters: run.Outcome.Parameters,
	})
	report := generator.Generate(run.Outcome.Results, run.Outcome.Screen, run.Outcome.Enforcement)
	if _, err := generator.Save(report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}
