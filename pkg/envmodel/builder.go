package envmodel

import (
	"fmt"
	"strings"

	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/planner"
)

// Approximation selects how readings become a probability
type Approximation string

const (
	// Mean is the observed frequency; unseen cells get the Prior
	Mean Approximation = "MEAN"
	// Laplace is the rule of succession (positive+1)/(total+2)
	Laplace Approximation = "LAPLACE"
)

// Prior is the probability assumed for a cell that was never observed
const Prior = 0.5

// ParseApproximation accepts the approximation names case-insensitively
func ParseApproximation(s string) (Approximation, error) {
	switch Approximation(strings.ToUpper(s)) {
	case Mean, "":
		return Mean, nil
	case Laplace:
		return Laplace, nil
	}
	return "", fmt.Errorf("unknown distribution approximation %q (use MEAN or LAPLACE)", s)
}

// Builder creates environment models from a threat and a target monitor
type Builder struct {
	Approximation Approximation
}

// Build predicts every cell of route
func (b Builder) Build(route dartsim.Route, threats, targets *Monitor) planner.StaticModel {
	model := make(planner.StaticModel, route.Len())
	for i := range model {
		c := route.At(i)
		model[i] = planner.EnvironmentState{
			ProbThreat: b.estimate(threats.Counts(c)),
			ProbTarget: b.estimate(targets.Counts(c)),
		}
	}
	return model
}

func (b Builder) estimate(positive, total int) float64 {
	if b.Approximation == Laplace {
		return float64(positive+1) / float64(total+2)
	}
	if total == 0 {
		return Prior
	}
	return float64(positive) / float64(total)
}
