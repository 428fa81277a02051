package simulation

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// SimulationConfig represents the configuration structure for a simulation
// loaded from simulation.yaml
type SimulationConfig struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Version     string      `yaml:"version"`
	Category    string      `yaml:"category"`
	Parameters  []Parameter `yaml:"parameters"`
}

// Parameter defines a configurable parameter for a simulation. Names are
// mission override keys such as map_size or survival_bound.
type Parameter struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"` // integer, float, string, boolean
	Description string      `yaml:"description"`
	Default     interface{} `yaml:"default"`
	Required    bool        `yaml:"required"`
	Min         interface{} `yaml:"min,omitempty"`
	Max         interface{} `yaml:"max,omitempty"`
	Options     []string    `yaml:"options,omitempty"` // For string enums
}

var parameterTypes = map[string]bool{
	"integer": true,
	"float":   true,
	"string":  true,
	"boolean": true,
}

// ParseConfig decodes and checks a simulation.yaml document
func ParseConfig(data []byte) (SimulationConfig, error) {
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse simulation config: %w", err)
	}
	if cfg.Name == "" {
		return cfg, fmt.Errorf("simulation config has no name")
	}

	seen := make(map[string]bool, len(cfg.Parameters))
	for _, p := range cfg.Parameters {
		if p.Name == "" {
			return cfg, fmt.Errorf("%s: parameter without a name", cfg.Name)
		}
		if seen[p.Name] {
			return cfg, fmt.Errorf("%s: duplicate parameter %s", cfg.Name, p.Name)
		}
		seen[p.Name] = true
		if !parameterTypes[p.Type] {
			return cfg, fmt.Errorf("%s: parameter %s has unsupported type %q", cfg.Name, p.Name, p.Type)
		}
	}
	return cfg, nil
}

// MustParseConfig is ParseConfig for embedded documents
func MustParseConfig(data []byte) SimulationConfig {
	cfg, err := ParseConfig(data)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Parameter returns the named parameter
func (c SimulationConfig) Parameter(name string) (Parameter, bool) {
	for _, p := range c.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}
