package enforced

import (
	"fmt"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/config"
)

// Config holds the configuration for the enforced simulation
type Config struct {
	Mission  *config.MissionConfig
	Enforced adaptation.EnforcedConfig
}

// ValidateAndParse validates and parses the raw parameters into a Config.
// The mission is copied before the parameters are applied.
func ValidateAndParse(mission *config.MissionConfig, params map[string]interface{}) (*Config, error) {
	m := *mission
	cfg := &Config{Mission: &m}

	rest := make(map[string]interface{}, len(params))
	for k, v := range params {
		rest[k] = v
	}

	// Parse survival_bound
	if v, ok := rest["survival_bound"]; ok {
		switch val := v.(type) {
		case float64:
			cfg.Mission.Adaptation.Enforced.SurvivalBound = val
		case int:
			cfg.Mission.Adaptation.Enforced.SurvivalBound = float64(val)
		default:
			return nil, fmt.Errorf("survival_bound must be a number")
		}
		delete(rest, "survival_bound")
	}

	if err := config.MergeWithCLIOverrides(cfg.Mission, rest); err != nil {
		return nil, err
	}
	if err := cfg.Mission.Validate(); err != nil {
		return nil, err
	}

	cfg.Enforced = cfg.Mission.Adaptation.Enforced
	if cfg.Enforced.Horizon > cfg.Mission.Simulation.MapSize {
		return nil, fmt.Errorf("horizon must not exceed the map size")
	}
	return cfg, nil
}
