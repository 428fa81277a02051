package config

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/picogrid/dart-simulations/pkg/envmodel"
)

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(filepath.Join("testdata", "mission.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Name != "square-patrol" {
		t.Errorf("Expected name 'square-patrol', got '%s'", config.Name)
	}

	sim := config.Simulation
	if sim.MapSize != 12 || !sim.SquareMap {
		t.Errorf("Expected a 12 cell square map, got %d (square: %t)", sim.MapSize, sim.SquareMap)
	}
	if sim.ChangeAltitudeLatencyPeriods != 2 {
		t.Errorf("Expected latency 2, got %d", sim.ChangeAltitudeLatencyPeriods)
	}
	if sim.LongRangeSensor.ThreatSensorFNR != 0.2 {
		t.Errorf("Expected threat FNR 0.2, got %f", sim.LongRangeSensor.ThreatSensorFNR)
	}

	// fields missing from the file keep their defaults
	if sim.LongRangeSensor.TargetSensorFPR != 0.10 {
		t.Errorf("Expected default target FPR 0.10, got %f", sim.LongRangeSensor.TargetSensorFPR)
	}
	if sim.Threat.DestructionFormationFactor != 1.5 {
		t.Errorf("Expected default destruction factor 1.5, got %f", sim.Threat.DestructionFormationFactor)
	}
	if config.Adaptation.Enforced.ObservationsPerCycle != 4 {
		t.Errorf("Expected default 4 observations per cycle, got %d", config.Adaptation.Enforced.ObservationsPerCycle)
	}

	enf := config.Adaptation.Enforced
	if enf.Horizon != 4 || enf.SurvivalBound != 0.95 || enf.Strategy != "geometric" || !enf.HasECM {
		t.Errorf("Unexpected enforced settings: %+v", enf)
	}
	if enf.Approximation != envmodel.Laplace {
		t.Errorf("Expected LAPLACE, got %s", enf.Approximation)
	}
	if config.Reporting.ReportFormat != "html" {
		t.Errorf("Expected html reports, got %s", config.Reporting.ReportFormat)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join("testdata", "missing.yaml")); err == nil {
		t.Error("Expected error for a missing file")
	}
	_, err := LoadConfig(filepath.Join("testdata", "invalid.yaml"))
	if err == nil || !strings.Contains(err.Error(), "map_size") {
		t.Errorf("Expected map_size validation error, got %v", err)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	config := GetDefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if !strings.Contains(config.String(), "Survival Bound: 0.900") {
		t.Errorf("Expected the survival bound in String(), got:\n%s", config.String())
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mission.yaml")
	config := GetDefaultConfig()
	config.Simulation.Seed = 42
	config.Adaptation.Enforced.Strategy = "arithmetic"

	if err := SaveConfig(config, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Simulation.Seed != 42 || loaded.Adaptation.Enforced.Strategy != "arithmetic" {
		t.Errorf("Saved fields were not preserved: seed=%d strategy=%s", loaded.Simulation.Seed, loaded.Adaptation.Enforced.Strategy)
	}
}

func TestMergeWithCLIOverrides(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   interface{}
		check   func(*MissionConfig) bool
		wantErr bool
	}{
		{"int", "map_size", 20, func(c *MissionConfig) bool { return c.Simulation.MapSize == 20 }, false},
		{"whole float as int", "num_threats", float64(3), func(c *MissionConfig) bool { return c.Simulation.NumThreats == 3 }, false},
		{"int as float", "survival_bound", 1, func(c *MissionConfig) bool { return c.Adaptation.Enforced.SurvivalBound == 1 }, false},
		{"seed", "seed", 99, func(c *MissionConfig) bool { return c.Simulation.Seed == 99 }, false},
		{"bool", "two_level_tactics", true, func(c *MissionConfig) bool { return c.Adaptation.Enforced.TwoLevelTactics }, false},
		{"approximation", "approximation", "laplace", func(c *MissionConfig) bool { return c.Adaptation.Enforced.Approximation == envmodel.Laplace }, false},
		{"log level", "log_level", "WARN", func(c *MissionConfig) bool { return c.Reporting.ConsoleLevel == "warn" }, false},
		{"fractional int", "map_size", 2.5, nil, true},
		{"wrong type", "square_map", "yes", nil, true},
		{"unknown key", "warp_speed", 9, nil, true},
		{"bad format", "report_format", "pdf", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := GetDefaultConfig()
			err := MergeWithCLIOverrides(config, map[string]interface{}{tt.key: tt.value})
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %s=%v", tt.key, tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !tt.check(config) {
				t.Errorf("Override %s=%v was not applied", tt.key, tt.value)
			}
		})
	}
}

func TestMergeWithEnvironment(t *testing.T) {
	t.Setenv("DART_MAP_SIZE", "25")
	t.Setenv("DART_OPTIMALITY_TEST", "true")
	t.Setenv("DART_STRATEGY", "instantaneous")

	config := GetDefaultConfig()
	if err := MergeWithEnvironment(config); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.Simulation.MapSize != 25 {
		t.Errorf("Expected map size 25, got %d", config.Simulation.MapSize)
	}
	if !config.Simulation.OptimalityTest {
		t.Error("Expected optimality test mode")
	}
	if config.Adaptation.Enforced.Strategy != "instantaneous" {
		t.Errorf("Expected instantaneous strategy, got %s", config.Adaptation.Enforced.Strategy)
	}

	t.Setenv("DART_NUM_TARGETS", "many")
	if err := MergeWithEnvironment(GetDefaultConfig()); err == nil {
		t.Error("Expected error for a non-numeric DART_NUM_TARGETS")
	}
}

func TestProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")

	profiles, err := LoadProfilesFromFile(path)
	if err != nil {
		t.Fatalf("Failed to load default profiles: %v", err)
	}
	if _, ok := profiles.Find("baseline"); !ok {
		t.Error("Expected the baseline profile by default")
	}

	if err := profiles.Add(Profile{Name: "fast", Parameters: map[string]string{"map_size": "oops"}}); err == nil {
		t.Error("Expected error for an invalid profile parameter")
	}
	if err := profiles.Add(Profile{Name: "fast", Parameters: map[string]string{"map_size": "10", "has_ecm": "true"}}); err != nil {
		t.Fatalf("Failed to add profile: %v", err)
	}
	profiles.Selected = "fast"
	if err := SaveProfilesToFile(profiles, path); err != nil {
		t.Fatalf("Failed to save profiles: %v", err)
	}

	loaded, err := LoadProfilesFromFile(path)
	if err != nil {
		t.Fatalf("Failed to reload profiles: %v", err)
	}
	fast, ok := loaded.Find("fast")
	if !ok {
		t.Fatal("Expected the fast profile after reload")
	}
	overrides, err := fast.Overrides()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if overrides["map_size"] != 10 || overrides["has_ecm"] != true {
		t.Errorf("Unexpected overrides: %v", overrides)
	}

	if err := loaded.Remove("fast"); err != nil {
		t.Fatalf("Failed to remove profile: %v", err)
	}
	if loaded.Selected != "" {
		t.Errorf("Expected selection cleared, got %q", loaded.Selected)
	}
	if err := loaded.Remove("fast"); err == nil {
		t.Error("Expected error removing a missing profile")
	}
}

func TestValuesCoverEveryKey(t *testing.T) {
	config := GetDefaultConfig()
	config.Simulation.MapSize = 17
	config.Adaptation.Enforced.Strategy = "instantaneous"

	values := config.Values()
	if len(values) != len(OverrideKeys()) {
		t.Fatalf("Expected %d values, got %d", len(OverrideKeys()), len(values))
	}

	copied := GetDefaultConfig()
	if err := MergeWithCLIOverrides(copied, values); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reflect.DeepEqual(config, copied) {
		t.Errorf("Expected %+v, got %+v", config, copied)
	}
}
