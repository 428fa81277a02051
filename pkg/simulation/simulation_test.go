package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/config"
	"github.com/picogrid/dart-simulations/pkg/dartsim"
)

type stubSimulation struct{ name string }

func (s *stubSimulation) Name() string        { return s.name }
func (s *stubSimulation) Description() string { return "stub" }
func (s *stubSimulation) Configure(*config.MissionConfig, map[string]interface{}) error {
	return nil
}
func (s *stubSimulation) Run(context.Context, Env) (*Outcome, error) { return &Outcome{}, nil }
func (s *stubSimulation) Stop() error                                { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha"} {
		name := name
		if err := r.Register(name, func() Simulation { return &stubSimulation{name: name} }); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	if err := r.Register("alpha", func() Simulation { return nil }); err == nil {
		t.Error("Expected error registering a duplicate")
	}

	names := r.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("Expected [alpha zeta], got %v", names)
	}

	sim, err := r.Get("zeta")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sim.Name() != "zeta" {
		t.Errorf("Expected zeta, got %s", sim.Name())
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("Expected error for an unknown simulation")
	}
}

func TestRegisterConfig(t *testing.T) {
	r := NewRegistry()
	cfg := MustParseConfig([]byte(`
name: DART Test
description: test simulation
version: 1.0.0
parameters:
  - name: map_size
    type: integer
    default: 40
    min: 2
`))
	if err := r.RegisterConfig(cfg, func() Simulation { return &stubSimulation{name: cfg.Name} }); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, ok := r.Config("DART Test")
	if !ok {
		t.Fatal("Expected config to be registered")
	}
	p, ok := got.Parameter("map_size")
	if !ok || p.Type != "integer" {
		t.Errorf("Expected integer map_size, got %+v", p)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no name", "description: x"},
		{"bad type", "name: a\nparameters:\n  - name: p\n    type: duration"},
		{"duplicate", "name: a\nparameters:\n  - name: p\n    type: integer\n  - name: p\n    type: float"},
		{"unnamed parameter", "name: a\nparameters:\n  - type: integer"},
		{"not yaml", "name: [a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.doc)); err == nil {
				t.Errorf("Expected error for %q", tt.doc)
			}
		})
	}
}

func TestFly(t *testing.T) {
	params := dartsim.DefaultParams()
	params.MapSize = 12
	params.NumThreats = 2
	params.NumTargets = 2

	var steps int
	env := Env{
		Seed:     5,
		Observer: adaptation.ObserverFunc(func(adaptation.StepRecord) { steps++ }),
	}
	outcome, err := Fly(context.Background(), env, params, func(p dartsim.SimulationParams) (adaptation.Manager, error) {
		return adaptation.NewReactive(p.AltitudeLevels), nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome.Manager != "reactive" {
		t.Errorf("Expected reactive, got %s", outcome.Manager)
	}
	if outcome.Parameters.Seed != 5 {
		t.Errorf("Expected seed 5, got %d", outcome.Parameters.Seed)
	}
	if steps != outcome.Results.Steps {
		t.Errorf("Expected %d observed steps, got %d", outcome.Results.Steps, steps)
	}
	if outcome.Screen == "" {
		t.Error("Expected a screen")
	}
}

func TestFlyManagerError(t *testing.T) {
	wantErr := errors.New("no manager")
	_, err := Fly(context.Background(), Env{Seed: 1}, dartsim.DefaultParams(), func(dartsim.SimulationParams) (adaptation.Manager, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected %v, got %v", wantErr, err)
	}
}
