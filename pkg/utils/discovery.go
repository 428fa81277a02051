package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/picogrid/dart-simulations/pkg/logger"
	"github.com/picogrid/dart-simulations/pkg/simulation"
)

// SimulationInfo contains information about a discovered simulation
type SimulationInfo struct {
	// Path is the directory holding simulation.yaml; empty for descriptions
	// compiled into the binary
	Path   string
	Config simulation.SimulationConfig
}

// DiscoverSimulations lists the simulations registered in registry. When run
// inside the source tree, simulation.yaml files found under cmd/ replace the
// compiled-in descriptions so that edits show up without a rebuild.
func DiscoverSimulations(registry *simulation.Registry) ([]SimulationInfo, error) {
	byName := make(map[string]SimulationInfo)
	for _, name := range registry.List() {
		cfg, ok := registry.Config(name)
		if !ok {
			cfg = simulation.SimulationConfig{Name: name}
		}
		byName[name] = SimulationInfo{Config: cfg}
	}

	if rootDir, err := findProjectRoot(); err == nil {
		found, err := scanDir(filepath.Join(rootDir, "cmd"))
		if err != nil {
			return nil, err
		}
		for _, info := range found {
			if _, registered := byName[info.Config.Name]; registered {
				byName[info.Config.Name] = info
			}
		}
	}

	simulations := make([]SimulationInfo, 0, len(byName))
	for _, info := range byName {
		simulations = append(simulations, info)
	}
	sort.Slice(simulations, func(i, j int) bool {
		return simulations[i].Config.Name < simulations[j].Config.Name
	})
	return simulations, nil
}

// FindSimulation returns the description of the named simulation
func FindSimulation(registry *simulation.Registry, name string) (*SimulationInfo, error) {
	infos, err := DiscoverSimulations(registry)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].Config.Name == name {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("simulation configuration not found for %s", name)
}

func scanDir(cmdDir string) ([]SimulationInfo, error) {
	var simulations []SimulationInfo
	if _, err := os.Stat(cmdDir); os.IsNotExist(err) {
		return nil, nil
	}

	err := filepath.Walk(cmdDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.Name() == "simulation.yaml" {
			simInfo, err := loadSimulationConfig(path)
			if err != nil {
				logger.Warnf("failed to load %s: %v", path, err)
				return nil
			}
			simulations = append(simulations, *simInfo)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan for simulations: %w", err)
	}

	return simulations, nil
}

// loadSimulationConfig loads a simulation configuration from a file
func loadSimulationConfig(path string) (*SimulationInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation config: %w", err)
	}

	config, err := simulation.ParseConfig(data)
	if err != nil {
		return nil, err
	}

	return &SimulationInfo{
		Path:   filepath.Dir(path),
		Config: config,
	}, nil
}

// findProjectRoot finds the project root by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (no go.mod found)")
		}
		dir = parent
	}
}
