package enforcer

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/logger"
)

// Outcome is one candidate of the planner menu: a tactic set and the survival
// probability (or expected utility) the planner assigned to it.
type Outcome struct {
	Tactics     dartsim.TacticSet `json:"tactics"`
	Probability float64           `json:"probability"`
}

func (o Outcome) String() string {
	return fmt.Sprintf("%s=%.4f", o.Tactics, o.Probability)
}

// Decision is the result of one enforcement epoch
type Decision struct {
	Tactics     dartsim.TacticSet `json:"tactics"`
	Probability float64           `json:"probability"`
	// Index of the chosen candidate in the menu
	Index int `json:"index"`
	// Passed is false when no candidate reached the target
	Passed bool `json:"passed"`
	// PassThrough is true when the mission tactics were kept unchanged
	PassThrough bool    `json:"passThrough"`
	Delta       float64 `json:"delta"`
	Target      float64 `json:"target"`
}

// Overridden reports whether the enforcer replaced the mission tactics
func (d Decision) Overridden(mission dartsim.TacticSet) bool {
	return !d.Tactics.Equal(mission)
}

// Option configures an Enforcer
type Option func(*Enforcer)

// WithStrategy selects how the per-epoch target is derived
func WithStrategy(s Strategy) Option {
	return func(e *Enforcer) {
		e.strategy = s
	}
}

// WithLogger sets the logger used for decision traces
func WithLogger(l logger.Logger) Option {
	return func(e *Enforcer) {
		e.log = l
	}
}

// WithMeter overrides the global meter
func WithMeter(m metric.Meter) Option {
	return func(e *Enforcer) {
		e.meter = m
	}
}

// Enforcer keeps the amortized survival probability of a mission at a bound
// by overriding the mission-optimal tactics when needed. It owns the history
// of accepted probabilities; one instance serves one mission.
type Enforcer struct {
	bound    float64
	strategy Strategy
	history  []float64
	log      logger.Logger
	meter    metric.Meter

	decisions  metric.Int64Counter
	overrides  metric.Int64Counter
	shortfalls metric.Int64Counter
}

// New creates an enforcer for a per-epoch survival bound in (0,1]
func New(bound float64, opts ...Option) (*Enforcer, error) {
	if !(bound > 0 && bound <= 1) {
		return nil, fmt.Errorf("survival bound must be in (0,1], got %v", bound)
	}

	e := &Enforcer{
		bound:    bound,
		strategy: LogGeometric{},
		log:      logger.Discard(),
		meter:    meter(),
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	e.decisions, err = e.meter.Int64Counter(
		"enforcer.decisions",
		metric.WithDescription("Total enforcement decisions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decisions counter: %w", err)
	}

	e.overrides, err = e.meter.Int64Counter(
		"enforcer.overrides",
		metric.WithDescription("Decisions that replaced the mission tactics"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating overrides counter: %w", err)
	}

	e.shortfalls, err = e.meter.Int64Counter(
		"enforcer.shortfalls",
		metric.WithDescription("Decisions where no candidate reached the target"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating shortfalls counter: %w", err)
	}

	return e, nil
}

// Bound returns the per-epoch survival bound
func (e *Enforcer) Bound() float64 {
	return e.bound
}

// Strategy returns the strategy in use
func (e *Enforcer) Strategy() Strategy {
	return e.strategy
}

// Decide picks the tactic set to execute this epoch. The mission tactics are
// kept when their candidate meets the bound. Otherwise the candidate whose
// score exceeds the target by the least wins; when none reaches it, the one
// closest to it from below. Decide does not change the history.
//
// candidates must not be empty.
func (e *Enforcer) Decide(mission dartsim.TacticSet, candidates []Outcome) Decision {
	if len(candidates) == 0 {
		panic("enforcer: empty candidate list")
	}

	target := e.strategy.Target(e.history, e.bound)
	attrs := metric.WithAttributes(attribute.String("strategy", e.strategy.Name()))
	e.decisions.Add(context.Background(), 1, attrs)

	for i, c := range candidates {
		p := clamp(c.Probability)
		if c.Tactics.Equal(mission) && p >= e.bound {
			e.log.Debugf("mission tactics %s pass with p=%.4f >= %.4f", mission, p, e.bound)
			return Decision{
				Tactics:     c.Tactics,
				Probability: p,
				Index:       i,
				Passed:      true,
				PassThrough: true,
				Delta:       e.strategy.Score(p) - target,
				Target:      target,
			}
		}
	}

	best, bestPassing := -1, -1
	deltas := make([]float64, len(candidates))
	for i, c := range candidates {
		p := clamp(c.Probability)
		deltas[i] = e.strategy.Score(p) - target
		if deltas[i] >= 0 {
			if bestPassing < 0 || deltas[i] < deltas[bestPassing] {
				bestPassing = i
			}
			continue
		}
		if best < 0 || closerFromBelow(deltas[i], p, deltas[best], clamp(candidates[best].Probability)) {
			best = i
		}
	}

	chosen, passed := bestPassing, true
	if chosen < 0 {
		chosen, passed = best, false
		e.shortfalls.Add(context.Background(), 1, attrs)
		e.log.Warnf("no candidate reaches the survival target %.4f, using %s", target, candidates[chosen])
	}

	d := Decision{
		Tactics:     candidates[chosen].Tactics,
		Probability: clamp(candidates[chosen].Probability),
		Index:       chosen,
		Passed:      passed,
		Delta:       deltas[chosen],
		Target:      target,
	}
	if d.Overridden(mission) {
		e.overrides.Add(context.Background(), 1, attrs)
		e.log.Debugf("overriding %s with %s (delta=%.4f)", mission, d.Tactics, d.Delta)
	}
	return d
}

// closerFromBelow compares two negative deltas. Equal distances, which is the
// case when both are -Inf, fall back to the larger probability; full ties keep
// the earlier candidate.
func closerFromBelow(delta, p, bestDelta, bestP float64) bool {
	if delta != bestDelta {
		return math.Abs(delta) < math.Abs(bestDelta)
	}
	return p > bestP
}

// Commit appends the accepted probability of a completed epoch to the history
func (e *Enforcer) Commit(p float64) {
	e.history = append(e.history, clamp(p))
}

// History returns a copy of the accepted probabilities
func (e *Enforcer) History() []float64 {
	out := make([]float64, len(e.history))
	copy(out, e.history)
	return out
}

// CumulativeSurvival is the product of the accepted probabilities
func (e *Enforcer) CumulativeSurvival() float64 {
	prod := 1.0
	for _, p := range e.history {
		prod *= p
	}
	return prod
}

// Reset clears the history for a new mission
func (e *Enforcer) Reset() {
	e.history = nil
}

func clamp(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
