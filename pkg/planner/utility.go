package planner

import "github.com/picogrid/dart-simulations/pkg/dartsim"

// DetectionUtility rewards expected target detections while discounting by
// the probability of surviving each cell.
type DetectionUtility struct {
	Threat dartsim.ThreatModel
	Target dartsim.TargetSensor
	Reward float64
}

// NewDetectionUtility builds the mission utility from simulation parameters
func NewDetectionUtility(p dartsim.SimulationParams, finalReward float64) DetectionUtility {
	return DetectionUtility{
		Threat: p.ThreatModel(),
		Target: p.TargetSensor(),
		Reward: finalReward,
	}
}

func (u DetectionUtility) AdditiveUtility(c dartsim.TeamConfiguration, e EnvironmentState, _ int) float64 {
	return e.ProbTarget * u.Target.Probability(c)
}

func (u DetectionUtility) MultiplicativeUtility(c dartsim.TeamConfiguration, e EnvironmentState, _ int) float64 {
	return survival(u.Threat, c, e)
}

func (u DetectionUtility) FinalReward(dartsim.TeamConfiguration, EnvironmentState, int) float64 {
	return u.Reward
}

// SurvivalUtility values a plan by its probability of surviving the horizon
type SurvivalUtility struct {
	Threat dartsim.ThreatModel
}

// NewSurvivalUtility builds the survivability utility from simulation parameters
func NewSurvivalUtility(p dartsim.SimulationParams) SurvivalUtility {
	return SurvivalUtility{Threat: p.ThreatModel()}
}

func (SurvivalUtility) AdditiveUtility(dartsim.TeamConfiguration, EnvironmentState, int) float64 {
	return 0
}

func (u SurvivalUtility) MultiplicativeUtility(c dartsim.TeamConfiguration, e EnvironmentState, _ int) float64 {
	return survival(u.Threat, c, e)
}

func (SurvivalUtility) FinalReward(dartsim.TeamConfiguration, EnvironmentState, int) float64 {
	return 1
}

func survival(m dartsim.ThreatModel, c dartsim.TeamConfiguration, e EnvironmentState) float64 {
	return 1 - e.ProbThreat*m.Probability(c)
}
