// Package adaptation drives a simulator with an adaptation manager: decide,
// time the decision, step, report.
package adaptation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/enforcer"
	"github.com/picogrid/dart-simulations/pkg/logger"
)

// Manager chooses the tactics for the next step
type Manager interface {
	Name() string
	Decide(sim *dartsim.Simulator) (dartsim.TacticSet, error)
}

// Finisher is implemented by managers that need to close the last epoch
type Finisher interface {
	Finish(sim *dartsim.Simulator)
}

// DecisionReporter is implemented by managers that run the enforcer
type DecisionReporter interface {
	LastDecision() (enforcer.Decision, bool)
}

// StepRecord describes one completed step
type StepRecord struct {
	Step             int                       `json:"step"`
	Position         dartsim.Coordinate        `json:"position"`
	Config           dartsim.TeamConfiguration `json:"config"`
	Tactics          dartsim.TacticSet         `json:"tactics"`
	Detected         bool                      `json:"detected"`
	Destroyed        bool                      `json:"destroyed"`
	DecisionTimeMsec float64                   `json:"decisionTimeMsec"`
	Decision         *enforcer.Decision        `json:"decision,omitempty"`
}

// Observer receives every step of a run
type Observer interface {
	Observe(rec StepRecord)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(rec StepRecord)

func (f ObserverFunc) Observe(rec StepRecord) { f(rec) }

// Observers fans a step out to several observers
type Observers []Observer

func (o Observers) Observe(rec StepRecord) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(rec)
		}
	}
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger for step traces
func WithRunnerLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = l
	}
}

// WithRunnerMeter overrides the global meter
func WithRunnerMeter(m metric.Meter) RunnerOption {
	return func(r *Runner) {
		r.meter = m
	}
}

// Runner executes the decide/step loop
type Runner struct {
	log   logger.Logger
	meter metric.Meter

	steps        metric.Int64Counter
	decisionTime metric.Float64Histogram
}

// NewRunner creates a runner and its instruments
func NewRunner(opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		log:   logger.Discard(),
		meter: meter(),
	}
	for _, opt := range opts {
		opt(r)
	}

	var err error
	r.steps, err = r.meter.Int64Counter(
		"adaptation.steps",
		metric.WithDescription("Total simulation steps executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating steps counter: %w", err)
	}

	r.decisionTime, err = r.meter.Float64Histogram(
		"adaptation.decision.time",
		metric.WithDescription("Time spent deciding the tactics of a step"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decision time histogram: %w", err)
	}

	return r, nil
}

// Run steps sim until it finishes or ctx is cancelled. A cancelled run
// returns the partial results together with the context error.
func (r *Runner) Run(ctx context.Context, sim *dartsim.Simulator, mgr Manager, observer Observer) (dartsim.Results, error) {
	attrs := metric.WithAttributes(attribute.String("manager", mgr.Name()))
	step := 0

	for !sim.Finished() {
		select {
		case <-ctx.Done():
			return sim.Results(), ctx.Err()
		default:
		}

		state := sim.State()
		start := time.Now()
		tactics, err := mgr.Decide(sim)
		elapsed := float64(time.Since(start)) / float64(time.Millisecond)
		if err != nil {
			return sim.Results(), fmt.Errorf("step %d at %s: %w", step, state.Position, err)
		}
		r.decisionTime.Record(ctx, elapsed, attrs)

		detected, err := sim.TryStep(tactics, elapsed)
		if err != nil {
			return sim.Results(), fmt.Errorf("step %d at %s: %w", step, state.Position, err)
		}
		r.steps.Add(ctx, 1, attrs)
		step++

		rec := StepRecord{
			Step:             step,
			Position:         state.Position,
			Config:           state.Config,
			Tactics:          tactics,
			Detected:         detected,
			Destroyed:        sim.Results().Destroyed,
			DecisionTimeMsec: elapsed,
		}
		if dr, ok := mgr.(DecisionReporter); ok {
			if d, ok := dr.LastDecision(); ok {
				rec.Decision = &d
			}
		}
		r.log.Debugf("step %d at %s: %s detected=%t", step, state.Position, tactics, detected)
		if observer != nil {
			observer.Observe(rec)
		}
	}

	if f, ok := mgr.(Finisher); ok {
		f.Finish(sim)
	}
	return sim.Results(), nil
}
