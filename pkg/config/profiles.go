package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ConfigDir is the directory under the home directory holding dart-sim state
const ConfigDir = ".dart-sim"

// Profile is a named set of parameter overrides
type Profile struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Parameters  map[string]string `yaml:"parameters,omitempty"`
}

// Overrides returns the typed parameter overrides of the profile
func (p Profile) Overrides() (map[string]interface{}, error) {
	overrides, err := ParseOverrides(p.Parameters)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	return overrides, nil
}

// Profiles holds the saved parameter profiles
type Profiles struct {
	Profiles []Profile `yaml:"profiles"`
	Selected string    `yaml:"selected,omitempty"`
}

// Find returns the profile called name
func (p *Profiles) Find(name string) (Profile, bool) {
	for _, profile := range p.Profiles {
		if profile.Name == name {
			return profile, true
		}
	}
	return Profile{}, false
}

// Add inserts or replaces a profile after checking its parameters
func (p *Profiles) Add(profile Profile) error {
	if profile.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if _, err := profile.Overrides(); err != nil {
		return err
	}
	for i, existing := range p.Profiles {
		if existing.Name == profile.Name {
			p.Profiles[i] = profile
			return nil
		}
	}
	p.Profiles = append(p.Profiles, profile)
	sort.Slice(p.Profiles, func(i, j int) bool { return p.Profiles[i].Name < p.Profiles[j].Name })
	return nil
}

// Remove deletes the profile called name
func (p *Profiles) Remove(name string) error {
	for i, profile := range p.Profiles {
		if profile.Name == name {
			p.Profiles = append(p.Profiles[:i], p.Profiles[i+1:]...)
			if p.Selected == name {
				p.Selected = ""
			}
			return nil
		}
	}
	return fmt.Errorf("profile %q not found", name)
}

// ProfilesPath returns the default location of the profiles file
func ProfilesPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ConfigDir, "profiles.yaml"), nil
}

// LoadProfiles loads the profiles from the default location
func LoadProfiles() (*Profiles, error) {
	path, err := ProfilesPath()
	if err != nil {
		return nil, err
	}
	return LoadProfilesFromFile(path)
}

// LoadProfilesFromFile loads the profiles from a specific file
func LoadProfilesFromFile(path string) (*Profiles, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return getDefaultProfiles(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var profiles Profiles
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	return &profiles, nil
}

// SaveProfiles saves the profiles to the default location
func SaveProfiles(profiles *Profiles) error {
	path, err := ProfilesPath()
	if err != nil {
		return err
	}
	return SaveProfilesToFile(profiles, path)
}

// SaveProfilesToFile saves the profiles to a specific file
func SaveProfilesToFile(profiles *Profiles, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profiles file: %w", err)
	}

	return nil
}

func getDefaultProfiles() *Profiles {
	return &Profiles{
		Profiles: []Profile{
			{
				Name:        "baseline",
				Description: "Default 40 cell linear map",
			},
			{
				Name:        "optimality-test",
				Description: "Perfect forward sensors and deterministic effects",
				Parameters:  map[string]string{"optimality_test": "true"},
			},
			{
				Name:        "square",
				Description: "Square map flown with a lawnmower route",
				Parameters:  map[string]string{"square_map": "true", "map_size": "10"},
			},
		},
	}
}
