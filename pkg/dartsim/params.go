package dartsim

import (
	"fmt"
	"strings"
)

// LongRangeSensorParams configures the forward looking sensors
type LongRangeSensorParams struct {
	ThreatSensorFPR float64 `yaml:"threat_sensor_fpr" json:"threatSensorFPR"`
	ThreatSensorFNR float64 `yaml:"threat_sensor_fnr" json:"threatSensorFNR"`
	TargetSensorFPR float64 `yaml:"target_sensor_fpr" json:"targetSensorFPR"`
	TargetSensorFNR float64 `yaml:"target_sensor_fnr" json:"targetSensorFNR"`
}

// DownwardLookingSensorParams configures target detection
type DownwardLookingSensorParams struct {
	TargetDetectionFormationFactor float64 `yaml:"target_detection_formation_factor" json:"targetDetectionFormationFactor"`
	TargetSensorRange              float64 `yaml:"target_sensor_range" json:"targetSensorRange"`
}

// ThreatParams configures the threats
type ThreatParams struct {
	DestructionFormationFactor float64 `yaml:"destruction_formation_factor" json:"destructionFormationFactor"`
	ThreatRange                float64 `yaml:"threat_range" json:"threatRange"`
}

// SimulationParams holds every parameter of a mission
type SimulationParams struct {
	MapSize                      int                         `yaml:"map_size" json:"mapSize"`
	SquareMap                    bool                        `yaml:"square_map" json:"squareMap"`
	AltitudeLevels               int                         `yaml:"altitude_levels" json:"altitudeLevels"`
	ChangeAltitudeLatencyPeriods int                         `yaml:"change_altitude_latency_periods" json:"changeAltitudeLatencyPeriods"`
	NumThreats                   int                         `yaml:"num_threats" json:"numThreats"`
	NumTargets                   int                         `yaml:"num_targets" json:"numTargets"`
	MissionSuccessThreshold      int                         `yaml:"mission_success_threshold" json:"missionSuccessThreshold"`
	LongRangeSensor              LongRangeSensorParams       `yaml:"long_range_sensor" json:"longRangeSensor"`
	DownwardLookingSensor        DownwardLookingSensorParams `yaml:"downward_looking_sensor" json:"downwardLookingSensor"`
	Threat                       ThreatParams                `yaml:"threat" json:"threat"`
	OptimalityTest               bool                        `yaml:"optimality_test" json:"optimalityTest"`
	AutoRange                    bool                        `yaml:"auto_range" json:"autoRange"`
	SparseHorizon                int                         `yaml:"sparse_horizon" json:"sparseHorizon"`
	Seed                         int64                       `yaml:"seed" json:"seed"`
}

// DefaultParams returns the standard mission
func DefaultParams() SimulationParams {
	return SimulationParams{
		MapSize:                      40,
		AltitudeLevels:               4,
		ChangeAltitudeLatencyPeriods: 1,
		NumThreats:                   6,
		NumTargets:                   4,
		LongRangeSensor: LongRangeSensorParams{
			ThreatSensorFPR: 0.10,
			ThreatSensorFNR: 0.15,
			TargetSensorFPR: 0.10,
			TargetSensorFNR: 0.15,
		},
		DownwardLookingSensor: DownwardLookingSensorParams{
			TargetDetectionFormationFactor: 1.2,
			TargetSensorRange:              4,
		},
		Threat: ThreatParams{
			DestructionFormationFactor: 1.5,
			ThreatRange:                3,
		},
	}
}

// Normalize applies the derived settings: auto range, the optimality test
// mode and the default success threshold.
func (p *SimulationParams) Normalize() {
	if p.AutoRange {
		p.DownwardLookingSensor.TargetSensorRange = float64(p.AltitudeLevels)
		p.Threat.ThreatRange = float64(p.AltitudeLevels * 3 / 4)
	}
	if p.OptimalityTest {
		p.LongRangeSensor = LongRangeSensorParams{}
		p.DownwardLookingSensor.TargetSensorRange = float64(p.AltitudeLevels / 2)
		p.Threat.ThreatRange = float64(p.AltitudeLevels * 3 / 4)
	}
	if p.MissionSuccessThreshold <= 0 {
		p.MissionSuccessThreshold = p.NumTargets / 2
	}
}

// Validate checks the parameters for consistency
func (p SimulationParams) Validate() error {
	var errs []string

	if p.MapSize < 2 {
		errs = append(errs, "map_size must be at least 2")
	}
	if p.AltitudeLevels < 1 {
		errs = append(errs, "altitude_levels must be at least 1")
	}
	if p.ChangeAltitudeLatencyPeriods < 0 {
		errs = append(errs, "change_altitude_latency_periods must not be negative")
	}
	cells := p.EnvironmentSize().X * p.EnvironmentSize().Y
	if p.NumThreats < 0 || p.NumThreats > cells {
		errs = append(errs, fmt.Sprintf("num_threats must be between 0 and the number of cells (%d)", cells))
	}
	if p.NumTargets < 0 || p.NumTargets > cells {
		errs = append(errs, fmt.Sprintf("num_targets must be between 0 and the number of cells (%d)", cells))
	}
	rates := []struct {
		name string
		rate float64
	}{
		{"threat_sensor_fpr", p.LongRangeSensor.ThreatSensorFPR},
		{"threat_sensor_fnr", p.LongRangeSensor.ThreatSensorFNR},
		{"target_sensor_fpr", p.LongRangeSensor.TargetSensorFPR},
		{"target_sensor_fnr", p.LongRangeSensor.TargetSensorFNR},
	}
	for _, r := range rates {
		if r.rate < 0 || r.rate > 1 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 1", r.name))
		}
	}
	if p.DownwardLookingSensor.TargetDetectionFormationFactor <= 0 {
		errs = append(errs, "target_detection_formation_factor must be positive")
	}
	if p.Threat.DestructionFormationFactor <= 0 {
		errs = append(errs, "destruction_formation_factor must be positive")
	}
	if p.DownwardLookingSensor.TargetSensorRange < 0 {
		errs = append(errs, "target_sensor_range must not be negative")
	}
	if p.Threat.ThreatRange < 0 {
		errs = append(errs, "threat_range must not be negative")
	}
	if p.SparseHorizon < 0 {
		errs = append(errs, "sparse_horizon must not be negative")
	}
	if p.SparseHorizon > 0 && p.SquareMap {
		errs = append(errs, "sparse_horizon requires a linear map")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid simulation parameters: %s", strings.Join(errs, "; "))
	}
	return nil
}

// EnvironmentSize returns the map bounds
func (p SimulationParams) EnvironmentSize() Coordinate {
	if p.SquareMap {
		return Coordinate{X: p.MapSize, Y: p.MapSize}
	}
	return Coordinate{X: p.MapSize, Y: 1}
}

// ThreatModel returns the destruction model described by p
func (p SimulationParams) ThreatModel() ThreatModel {
	return ThreatModel{
		Range:           p.Threat.ThreatRange,
		FormationFactor: p.Threat.DestructionFormationFactor,
		Deterministic:   p.OptimalityTest,
	}
}

// TargetSensor returns the detection model described by p
func (p SimulationParams) TargetSensor() TargetSensor {
	return TargetSensor{
		Range:           p.DownwardLookingSensor.TargetSensorRange,
		FormationFactor: p.DownwardLookingSensor.TargetDetectionFormationFactor,
		Deterministic:   p.OptimalityTest,
	}
}
