package dartsim

import "math"

// Sensor is a binary sensor with independent false positive and false
// negative rates.
type Sensor struct {
	FalsePositiveRate float64
	FalseNegativeRate float64
}

// Sense returns a noisy reading of truth using exactly one draw from rng
func (s Sensor) Sense(truth bool, rng Random) bool {
	r := rng.Float64()
	if truth && r < s.FalseNegativeRate {
		return false
	}
	if !truth && r < s.FalsePositiveRate {
		return true
	}
	return truth
}

// ThreatModel computes the probability that a threat destroys the team
type ThreatModel struct {
	Range           float64
	FormationFactor float64
	Deterministic   bool
}

// Probability of destruction for cfg when a threat is present
func (m ThreatModel) Probability(cfg TeamConfiguration) float64 {
	return effectProbability(m.Range, m.FormationFactor, m.Deterministic, cfg)
}

// IsDestroyed draws the destruction outcome. Without a threat no draw is made.
func (m ThreatModel) IsDestroyed(cfg TeamConfiguration, threatPresent bool, rng Random) bool {
	if !threatPresent {
		return false
	}
	return rng.Float64() < m.Probability(cfg)
}

// TargetSensor is the downward looking sensor used to detect targets
type TargetSensor struct {
	Range           float64
	FormationFactor float64
	Deterministic   bool
}

// Probability of detection for cfg when a target is present
func (s TargetSensor) Probability(cfg TeamConfiguration) float64 {
	return effectProbability(s.Range, s.FormationFactor, s.Deterministic, cfg)
}

// Sense draws the detection outcome. Without a target no draw is made.
func (s TargetSensor) Sense(cfg TeamConfiguration, targetPresent bool, rng Random) bool {
	if !targetPresent {
		return false
	}
	return rng.Float64() < s.Probability(cfg)
}

// effectProbability is shared by threats and the target sensor: the effect
// fades linearly with height, tight formation divides it by factor and ECM
// quarters it. Height is AltitudeLevel+1 since level 0 is above the ground.
func effectProbability(reach, factor float64, deterministic bool, cfg TeamConfiguration) float64 {
	if reach <= 0 {
		return 0
	}
	formation := 1.0
	if cfg.Formation == Tight {
		formation = 1 / factor
	}
	height := float64(cfg.AltitudeLevel + 1)
	p := formation * math.Max(0, reach-height) / reach
	if cfg.ECM {
		p *= 0.25
	}
	if deterministic {
		if p > 0 {
			return 1
		}
		return 0
	}
	return p
}
