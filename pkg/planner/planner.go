// Package planner defines the contract between the adaptation drivers and a
// tactic planner, and provides a finite-horizon lookahead planner.
package planner

import (
	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/enforcer"
)

// DefaultFinalReward makes a surviving plan win over a destroyed one with the
// same expected detections.
const DefaultFinalReward = 0.00001

// UtilityFunction scores configurations of type C in environments of type E.
// A plan's value is the product of multiplicative utilities times the sum of
// additive utilities, plus the final reward once the horizon is reached.
type UtilityFunction[C, E any] interface {
	AdditiveUtility(config C, env E, step int) float64
	MultiplicativeUtility(config C, env E, step int) float64
	FinalReward(config C, env E, step int) float64
}

// EnvironmentState is the predicted environment of one cell of the horizon
type EnvironmentState struct {
	ProbThreat float64 `json:"probThreat"`
	ProbTarget float64 `json:"probTarget"`
}

// EnvironmentModel predicts the cells ahead, step 0 being the current cell
type EnvironmentModel interface {
	Steps() int
	At(step int) EnvironmentState
}

// StaticModel is an EnvironmentModel backed by a slice
type StaticModel []EnvironmentState

func (m StaticModel) Steps() int { return len(m) }

func (m StaticModel) At(step int) EnvironmentState { return m[step] }

// Utility is the utility function type used by DART planners
type Utility = UtilityFunction[dartsim.TeamConfiguration, EnvironmentState]

// Planner chooses the tactics to execute now for a configuration and a
// predicted environment.
type Planner interface {
	Evaluate(current dartsim.TeamConfiguration, model EnvironmentModel, utility Utility, horizon int) dartsim.TacticSet
	// CandidateOutcomes lists every first tactic set considered by the last
	// Evaluate call with its value. It is never empty after Evaluate.
	CandidateOutcomes() []enforcer.Outcome
}
