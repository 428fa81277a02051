package enforcer

import (
	"math"
	"testing"
)

func TestStrategyTargets(t *testing.T) {
	history := []float64{0.9, 0.8}
	const bound = 0.85

	tests := []struct {
		strategy Strategy
		want     float64
	}{
		{LogGeometric{}, 3*math.Log(bound) - math.Log(0.9) - math.Log(0.8)},
		{GeometricProduct{}, math.Pow(bound, 3) / (0.9 * 0.8)},
		{ArithmeticMean{}, 3*bound - 0.9 - 0.8},
		{Instantaneous{}, bound},
	}

	for _, tt := range tests {
		t.Run(tt.strategy.Name(), func(t *testing.T) {
			got := tt.strategy.Target(history, bound)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Expected target %f, got %f", tt.want, got)
			}
		})
	}
}

func TestGeometricProductZeroHistory(t *testing.T) {
	got := GeometricProduct{}.Target([]float64{0.9, 0}, 0.9)
	if !math.IsInf(got, 1) {
		t.Errorf("Expected +Inf, got %f", got)
	}
}

func TestStrategyByName(t *testing.T) {
	s, err := StrategyByName("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Name() != "log-geometric" {
		t.Errorf("Expected default strategy 'log-geometric', got '%s'", s.Name())
	}

	s, err = StrategyByName("Arithmetic")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := s.(ArithmeticMean); !ok {
		t.Errorf("Expected ArithmeticMean, got %T", s)
	}

	if _, err := StrategyByName("median"); err == nil {
		t.Error("Expected error for unknown strategy")
	}

	names := StrategyNames()
	if len(names) != 4 || names[0] != "arithmetic" {
		t.Errorf("Unexpected strategy names: %v", names)
	}
}
