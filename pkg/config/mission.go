package config

import (
	"fmt"
	"strings"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/dartsim"
)

// MissionConfig holds the complete configuration of a DART mission
type MissionConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Simulator parameters
	Simulation dartsim.SimulationParams `yaml:"simulation"`

	// Adaptation manager settings
	Adaptation AdaptationConfig `yaml:"adaptation"`

	// Logging and report settings
	Reporting ReportingConfig `yaml:"reporting"`
}

// AdaptationConfig holds the settings of both adaptation managers
type AdaptationConfig struct {
	ReactiveHorizon int                       `yaml:"reactive_horizon"`
	Enforced        adaptation.EnforcedConfig `yaml:"enforced"`
}

// ReportingConfig defines logging and reporting settings
type ReportingConfig struct {
	ConsoleLevel     string `yaml:"console_level"` // "debug", "info", "warn", "error"
	ShowScreen       bool   `yaml:"show_screen"`
	EnableReport     bool   `yaml:"enable_report"`
	ReportFormat     string `yaml:"report_format"` // "json", "markdown", "html"
	ReportOutputPath string `yaml:"report_output_path"`
	EventsFile       string `yaml:"events_file,omitempty"`
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"json", "markdown", "html"}
)

// GetDefaultConfig returns the standard DART mission
func GetDefaultConfig() *MissionConfig {
	return &MissionConfig{
		Name:        "dart",
		Description: "DART team of drones on a reconnaissance route",
		Simulation:  dartsim.DefaultParams(),
		Adaptation: AdaptationConfig{
			ReactiveHorizon: adaptation.DefaultHorizon,
			Enforced:        adaptation.DefaultEnforcedConfig(),
		},
		Reporting: ReportingConfig{
			ConsoleLevel:     "info",
			ShowScreen:       true,
			EnableReport:     false,
			ReportFormat:     "markdown",
			ReportOutputPath: "./reports/",
		},
	}
}

// Validate checks if the configuration is valid
func (c *MissionConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("mission name is required")
	}

	params := c.Simulation
	params.Normalize()
	if err := params.Validate(); err != nil {
		return err
	}

	if c.Adaptation.ReactiveHorizon < 1 {
		return fmt.Errorf("reactive horizon must be at least 1")
	}
	if err := c.Adaptation.Enforced.Validate(); err != nil {
		return fmt.Errorf("invalid enforced adaptation: %w", err)
	}

	if !oneOf(c.Reporting.ConsoleLevel, validLevels) {
		return fmt.Errorf("console level must be one of %s", strings.Join(validLevels, ", "))
	}
	if !oneOf(c.Reporting.ReportFormat, validFormats) {
		return fmt.Errorf("report format must be one of %s", strings.Join(validFormats, ", "))
	}

	return nil
}

// String returns a human-readable representation of the configuration
func (c *MissionConfig) String() string {
	s := c.Simulation
	e := c.Adaptation.Enforced
	return fmt.Sprintf(`Mission Configuration:
  Name: %s
  Description: %s

Map:
  Size: %d (square: %t)
  Altitude Levels: %d
  Altitude Change Latency: %d
  Threats: %d
  Targets: %d
  Success Threshold: %d
  Seed: %d

Sensors:
  Threat Sensor FPR/FNR: %.2f/%.2f
  Target Sensor FPR/FNR: %.2f/%.2f
  Target Sensor Range: %.1f
  Threat Range: %.1f

Adaptation:
  Reactive Horizon: %d
  Planning Horizon: %d
  Observations per Cycle: %d
  Survival Bound: %.3f
  Strategy: %s
  Approximation: %s

Reporting:
  Console Level: %s
  Report Enabled: %t
  Report Format: %s`,
		c.Name,
		c.Description,
		s.MapSize, s.SquareMap,
		s.AltitudeLevels,
		s.ChangeAltitudeLatencyPeriods,
		s.NumThreats,
		s.NumTargets,
		s.MissionSuccessThreshold,
		s.Seed,
		s.LongRangeSensor.ThreatSensorFPR, s.LongRangeSensor.ThreatSensorFNR,
		s.LongRangeSensor.TargetSensorFPR, s.LongRangeSensor.TargetSensorFNR,
		s.DownwardLookingSensor.TargetSensorRange,
		s.Threat.ThreatRange,
		c.Adaptation.ReactiveHorizon,
		e.Horizon,
		e.ObservationsPerCycle,
		e.SurvivalBound,
		e.Strategy,
		e.Approximation,
		c.Reporting.ConsoleLevel,
		c.Reporting.EnableReport,
		c.Reporting.ReportFormat,
	)
}

func oneOf(value string, valid []string) bool {
	for _, v := range valid {
		if value == v {
			return true
		}
	}
	return false
}
