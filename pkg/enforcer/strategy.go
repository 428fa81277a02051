package enforcer

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Strategy turns the enforcement history and the per-epoch bound into the
// score a candidate must reach this epoch.
type Strategy interface {
	Name() string
	// Target is the score this epoch has to contribute so that the running
	// aggregate of history plus this epoch meets bound.
	Target(history []float64, bound float64) float64
	// Score maps a survival probability onto the scale of Target.
	Score(p float64) float64
}

// LogGeometric keeps the running geometric mean of accepted probabilities at
// the bound, computed in the log domain.
type LogGeometric struct{}

func (LogGeometric) Name() string { return "log-geometric" }

func (LogGeometric) Target(history []float64, bound float64) float64 {
	sum := 0.0
	for _, p := range history {
		sum += math.Log(p)
	}
	return float64(len(history)+1)*math.Log(bound) - sum
}

func (LogGeometric) Score(p float64) float64 { return math.Log(p) }

// GeometricProduct is LogGeometric without logarithms
type GeometricProduct struct{}

func (GeometricProduct) Name() string { return "geometric" }

func (GeometricProduct) Target(history []float64, bound float64) float64 {
	prod := 1.0
	for _, p := range history {
		prod *= p
	}
	if prod == 0 {
		return math.Inf(1)
	}
	return math.Pow(bound, float64(len(history)+1)) / prod
}

func (GeometricProduct) Score(p float64) float64 { return p }

// ArithmeticMean keeps the running arithmetic mean at the bound
type ArithmeticMean struct{}

func (ArithmeticMean) Name() string { return "arithmetic" }

func (ArithmeticMean) Target(history []float64, bound float64) float64 {
	sum := 0.0
	for _, p := range history {
		sum += p
	}
	return float64(len(history)+1)*bound - sum
}

func (ArithmeticMean) Score(p float64) float64 { return p }

// Instantaneous ignores the history and matches the bound every epoch
type Instantaneous struct{}

func (Instantaneous) Name() string { return "instantaneous" }

func (Instantaneous) Target(_ []float64, bound float64) float64 { return bound }

func (Instantaneous) Score(p float64) float64 { return p }

var strategies = map[string]Strategy{
	LogGeometric{}.Name():     LogGeometric{},
	GeometricProduct{}.Name(): GeometricProduct{},
	ArithmeticMean{}.Name():   ArithmeticMean{},
	Instantaneous{}.Name():    Instantaneous{},
}

// StrategyNames lists the registered strategies in alphabetical order
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StrategyByName looks up a strategy. The empty name selects LogGeometric.
func StrategyByName(name string) (Strategy, error) {
	if name == "" {
		return LogGeometric{}, nil
	}
	s, ok := strategies[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown enforcement strategy %q (available: %s)", name, strings.Join(StrategyNames(), ", "))
	}
	return s, nil
}
