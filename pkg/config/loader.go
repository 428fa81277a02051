package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/picogrid/dart-simulations/pkg/envmodel"
	"github.com/picogrid/dart-simulations/pkg/logger"
)

// EnvPrefix prefixes every environment override, e.g. DART_MAP_SIZE
const EnvPrefix = "DART_"

type kind int

const (
	kindInt kind = iota
	kindFloat
	kindBool
	kindString
)

// overrideKeys lists every key accepted by MergeWithCLIOverrides
var overrideKeys = map[string]kind{
	"map_size":                          kindInt,
	"square_map":                        kindBool,
	"altitude_levels":                   kindInt,
	"change_altitude_latency_periods":   kindInt,
	"num_threats":                       kindInt,
	"num_targets":                       kindInt,
	"mission_success_threshold":         kindInt,
	"threat_sensor_fpr":                 kindFloat,
	"threat_sensor_fnr":                 kindFloat,
	"target_sensor_fpr":                 kindFloat,
	"target_sensor_fnr":                 kindFloat,
	"target_detection_formation_factor": kindFloat,
	"target_sensor_range":               kindFloat,
	"destruction_formation_factor":      kindFloat,
	"threat_range":                      kindFloat,
	"optimality_test":                   kindBool,
	"auto_range":                        kindBool,
	"sparse_horizon":                    kindInt,
	"seed":                              kindInt,
	"reactive_horizon":                  kindInt,
	"horizon":                           kindInt,
	"observations_per_cycle":            kindInt,
	"survival_bound":                    kindFloat,
	"final_reward":                      kindFloat,
	"approximation":                     kindString,
	"strategy":                          kindString,
	"has_ecm":                           kindBool,
	"two_level_tactics":                 kindBool,
	"log_level":                         kindString,
	"show_screen":                       kindBool,
	"enable_report":                     kindBool,
	"report_format":                     kindString,
	"report_output_path":                kindString,
	"events_file":                       kindString,
}

// OverrideKeys returns the accepted override keys in sorted order
func OverrideKeys() []string {
	keys := make([]string, 0, len(overrideKeys))
	for k := range overrideKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadConfig loads configuration from a YAML file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*MissionConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads config from file or returns default, with environment overrides
func LoadConfigOrDefault(path string) (*MissionConfig, error) {
	var config *MissionConfig
	var err error

	if path != "" {
		config, err = LoadConfig(path)
		if err != nil {
			logger.Warnf("Could not load config from %s: %v", path, err)
			config = nil
		}
	}

	if config == nil {
		defaultPaths := []string{
			"mission.yaml",
			"dart.yaml",
			filepath.Join(".", "config", "mission.yaml"),
		}

		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				config, err = LoadConfig(p)
				if err == nil {
					logger.Debugf("Loaded config from: %s", p)
					break
				}
			}
		}
	}

	if config == nil {
		logger.Debug("Using default mission configuration")
		config = GetDefaultConfig()
	}

	if err := MergeWithEnvironment(config); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *MissionConfig, path string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// ParseOverride converts the string form of an override, as found in the
// environment or a profile, to its typed value
func ParseOverride(key, raw string) (interface{}, error) {
	k, ok := overrideKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q", key)
	}
	raw = strings.TrimSpace(raw)
	switch k {
	case kindInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer: %w", key, err)
		}
		return v, nil
	case kindFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number: %w", key, err)
		}
		return v, nil
	case kindBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false: %w", key, err)
		}
		return v, nil
	}
	return raw, nil
}

// ParseOverrides converts a map of string overrides
func ParseOverrides(raw map[string]string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(raw))
	for key, value := range raw {
		v, err := ParseOverride(key, value)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// MergeWithCLIOverrides applies parameter overrides to the configuration.
// Values of the wrong type and unknown keys are rejected.
func MergeWithCLIOverrides(config *MissionConfig, overrides map[string]interface{}) error {
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := apply(config, key, overrides[key]); err != nil {
			return err
		}
	}
	return nil
}

func apply(config *MissionConfig, key string, value interface{}) error {
	k, ok := overrideKeys[key]
	if !ok {
		return fmt.Errorf("unknown parameter %q", key)
	}

	var (
		i int
		f float64
		b bool
		s string
	)
	switch k {
	case kindInt:
		v, ok := toInt(value)
		if !ok {
			return fmt.Errorf("%s must be an integer, got %T", key, value)
		}
		i = v
	case kindFloat:
		v, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("%s must be a number, got %T", key, value)
		}
		f = v
	case kindBool:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%s must be a boolean, got %T", key, value)
		}
		b = v
	case kindString:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be a string, got %T", key, value)
		}
		s = v
	}

	sim := &config.Simulation
	enf := &config.Adaptation.Enforced
	switch key {
	case "map_size":
		sim.MapSize = i
	case "square_map":
		sim.SquareMap = b
	case "altitude_levels":
		sim.AltitudeLevels = i
	case "change_altitude_latency_periods":
		sim.ChangeAltitudeLatencyPeriods = i
	case "num_threats":
		sim.NumThreats = i
	case "num_targets":
		sim.NumTargets = i
	case "mission_success_threshold":
		sim.MissionSuccessThreshold = i
	case "threat_sensor_fpr":
		sim.LongRangeSensor.ThreatSensorFPR = f
	case "threat_sensor_fnr":
		sim.LongRangeSensor.ThreatSensorFNR = f
	case "target_sensor_fpr":
		sim.LongRangeSensor.TargetSensorFPR = f
	case "target_sensor_fnr":
		sim.LongRangeSensor.TargetSensorFNR = f
	case "target_detection_formation_factor":
		sim.DownwardLookingSensor.TargetDetectionFormationFactor = f
	case "target_sensor_range":
		sim.DownwardLookingSensor.TargetSensorRange = f
	case "destruction_formation_factor":
		sim.Threat.DestructionFormationFactor = f
	case "threat_range":
		sim.Threat.ThreatRange = f
	case "optimality_test":
		sim.OptimalityTest = b
	case "auto_range":
		sim.AutoRange = b
	case "sparse_horizon":
		sim.SparseHorizon = i
	case "seed":
		sim.Seed = int64(i)
	case "reactive_horizon":
		config.Adaptation.ReactiveHorizon = i
	case "horizon":
		enf.Horizon = i
	case "observations_per_cycle":
		enf.ObservationsPerCycle = i
	case "survival_bound":
		enf.SurvivalBound = f
	case "final_reward":
		enf.FinalReward = f
	case "approximation":
		a, err := envmodel.ParseApproximation(s)
		if err != nil {
			return err
		}
		enf.Approximation = a
	case "strategy":
		enf.Strategy = strings.ToLower(s)
	case "has_ecm":
		enf.HasECM = b
	case "two_level_tactics":
		enf.TwoLevelTactics = b
	case "log_level":
		if !oneOf(strings.ToLower(s), validLevels) {
			return fmt.Errorf("log_level must be one of %s", strings.Join(validLevels, ", "))
		}
		config.Reporting.ConsoleLevel = strings.ToLower(s)
	case "show_screen":
		config.Reporting.ShowScreen = b
	case "enable_report":
		config.Reporting.EnableReport = b
	case "report_format":
		if !oneOf(strings.ToLower(s), validFormats) {
			return fmt.Errorf("report_format must be one of %s", strings.Join(validFormats, ", "))
		}
		config.Reporting.ReportFormat = strings.ToLower(s)
	case "report_output_path":
		config.Reporting.ReportOutputPath = s
	case "events_file":
		config.Reporting.EventsFile = s
	}
	return nil
}

// Values returns the current value of every override key
func (config *MissionConfig) Values() map[string]interface{} {
	sim := config.Simulation
	enf := config.Adaptation.Enforced
	rep := config.Reporting
	return map[string]interface{}{
		"map_size":                          sim.MapSize,
		"square_map":                        sim.SquareMap,
		"altitude_levels":                   sim.AltitudeLevels,
		"change_altitude_latency_periods":   sim.ChangeAltitudeLatencyPeriods,
		"num_threats":                       sim.NumThreats,
		"num_targets":                       sim.NumTargets,
		"mission_success_threshold":         sim.MissionSuccessThreshold,
		"threat_sensor_fpr":                 sim.LongRangeSensor.ThreatSensorFPR,
		"threat_sensor_fnr":                 sim.LongRangeSensor.ThreatSensorFNR,
		"target_sensor_fpr":                 sim.LongRangeSensor.TargetSensorFPR,
		"target_sensor_fnr":                 sim.LongRangeSensor.TargetSensorFNR,
		"target_detection_formation_factor": sim.DownwardLookingSensor.TargetDetectionFormationFactor,
		"target_sensor_range":               sim.DownwardLookingSensor.TargetSensorRange,
		"destruction_formation_factor":      sim.Threat.DestructionFormationFactor,
		"threat_range":                      sim.Threat.ThreatRange,
		"optimality_test":                   sim.OptimalityTest,
		"auto_range":                        sim.AutoRange,
		"sparse_horizon":                    sim.SparseHorizon,
		"seed":                              int(sim.Seed),
		"reactive_horizon":                  config.Adaptation.ReactiveHorizon,
		"horizon":                           enf.Horizon,
		"observations_per_cycle":            enf.ObservationsPerCycle,
		"survival_bound":                    enf.SurvivalBound,
		"final_reward":                      enf.FinalReward,
		"approximation":                     string(enf.Approximation),
		"strategy":                          enf.Strategy,
		"has_ecm":                           enf.HasECM,
		"two_level_tactics":                 enf.TwoLevelTactics,
		"log_level":                         rep.ConsoleLevel,
		"show_screen":                       rep.ShowScreen,
		"enable_report":                     rep.EnableReport,
		"report_format":                     rep.ReportFormat,
		"report_output_path":                rep.ReportOutputPath,
		"events_file":                       rep.EventsFile,
	}
}

// LoadConfigWithOverrides loads config and applies both environment and CLI overrides
func LoadConfigWithOverrides(path string, cliOverrides map[string]interface{}) (*MissionConfig, error) {
	config, err := LoadConfigOrDefault(path)
	if err != nil {
		return nil, err
	}

	if cliOverrides != nil {
		if err := MergeWithCLIOverrides(config, cliOverrides); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed after overrides: %w", err)
	}

	return config, nil
}

// MergeWithEnvironment applies DART_<KEY> environment variables
func MergeWithEnvironment(config *MissionConfig) error {
	overrides := make(map[string]interface{})
	for key := range overrideKeys {
		raw := os.Getenv(EnvPrefix + strings.ToUpper(key))
		if raw == "" {
			continue
		}
		v, err := ParseOverride(key, raw)
		if err != nil {
			return fmt.Errorf("environment %s%s: %w", EnvPrefix, strings.ToUpper(key), err)
		}
		overrides[key] = v
	}
	return MergeWithCLIOverrides(config, overrides)
}

func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
