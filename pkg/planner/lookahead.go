package planner

import (
	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/enforcer"
)

// Lookahead plans by exhaustive dynamic programming over the configuration
// space for the cells of the horizon:
//
//	V(H, c) = final reward
//	V(k, c) = max over T of s(k, c') * (g(k, c') + V(k+1, evolve(c'))), c' = apply(c, T)
//
// where s and g are the multiplicative and additive utilities of cell k.
type Lookahead struct {
	Space      ConfigurationSpace
	candidates []enforcer.Outcome
}

// NewLookahead creates a planner over space
func NewLookahead(space ConfigurationSpace) *Lookahead {
	return &Lookahead{Space: space}
}

type stateKey struct {
	step   int
	config dartsim.TeamConfiguration
}

type search struct {
	space   ConfigurationSpace
	model   EnvironmentModel
	utility Utility
	horizon int
	memo    map[stateKey]float64
}

// Evaluate returns the first tactic set of the best plan. When two sets have
// the same value the one listed first by Feasible wins, so the empty set is
// preferred.
func (l *Lookahead) Evaluate(current dartsim.TeamConfiguration, model EnvironmentModel, utility Utility, horizon int) dartsim.TacticSet {
	if horizon > model.Steps() {
		horizon = model.Steps()
	}
	s := &search{
		space:   l.Space,
		model:   model,
		utility: utility,
		horizon: horizon,
		memo:    make(map[stateKey]float64),
	}

	l.candidates = l.candidates[:0]
	best := -1
	for _, tactics := range l.Space.Feasible(current) {
		v := s.choice(0, current, tactics)
		l.candidates = append(l.candidates, enforcer.Outcome{Tactics: tactics, Probability: v})
		if best < 0 || v > l.candidates[best].Probability {
			best = len(l.candidates) - 1
		}
	}
	return l.candidates[best].Tactics
}

// CandidateOutcomes returns the value of every first tactic set considered by
// the last Evaluate call
func (l *Lookahead) CandidateOutcomes() []enforcer.Outcome {
	out := make([]enforcer.Outcome, len(l.candidates))
	copy(out, l.candidates)
	return out
}

func (s *search) value(step int, c dartsim.TeamConfiguration) float64 {
	if step >= s.horizon {
		return s.utility.FinalReward(c, s.env(step), step)
	}
	key := stateKey{step, c}
	if v, ok := s.memo[key]; ok {
		return v
	}
	best := 0.0
	for i, tactics := range s.space.Feasible(c) {
		v := s.choice(step, c, tactics)
		if i == 0 || v > best {
			best = v
		}
	}
	s.memo[key] = best
	return best
}

func (s *search) choice(step int, c dartsim.TeamConfiguration, tactics dartsim.TacticSet) float64 {
	if step >= s.horizon {
		return s.utility.FinalReward(c, s.env(step), step)
	}
	next := s.space.Apply(c, tactics)
	e := s.model.At(step)
	return s.utility.MultiplicativeUtility(next, e, step) *
		(s.utility.AdditiveUtility(next, e, step) + s.value(step+1, s.space.Evolve(next)))
}

func (s *search) env(step int) EnvironmentState {
	if step < s.model.Steps() {
		return s.model.At(step)
	}
	return EnvironmentState{}
}
