package reactive

import (
	"fmt"

	"github.com/picogrid/dart-simulations/pkg/config"
)

// Config holds the configuration for the reactive simulation
type Config struct {
	Mission *config.MissionConfig
	Horizon int
}

// ValidateAndParse validates and parses the raw parameters into a Config.
// The mission is copied before the parameters are applied.
func ValidateAndParse(mission *config.MissionConfig, params map[string]interface{}) (*Config, error) {
	m := *mission
	cfg := &Config{Mission: &m, Horizon: m.Adaptation.ReactiveHorizon}

	rest := make(map[string]interface{}, len(params))
	for k, v := range params {
		rest[k] = v
	}

	// Parse reactive_horizon
	if v, ok := rest["reactive_horizon"]; ok {
		switch val := v.(type) {
		case int:
			cfg.Horizon = val
		case float64:
			cfg.Horizon = int(val)
		default:
			return nil, fmt.Errorf("reactive_horizon must be an integer")
		}
		delete(rest, "reactive_horizon")
	}

	if err := config.MergeWithCLIOverrides(cfg.Mission, rest); err != nil {
		return nil, err
	}
	if cfg.Horizon < 1 || cfg.Horizon > cfg.Mission.Simulation.MapSize {
		return nil, fmt.Errorf("reactive_horizon must be between 1 and the map size")
	}
	cfg.Mission.Adaptation.ReactiveHorizon = cfg.Horizon

	if err := cfg.Mission.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
