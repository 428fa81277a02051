package adaptation

import (
	"fmt"

	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/enforcer"
	"github.com/picogrid/dart-simulations/pkg/envmodel"
	"github.com/picogrid/dart-simulations/pkg/logger"
	"github.com/picogrid/dart-simulations/pkg/planner"
)

// EnforcedConfig holds the knobs of the planner + enforcer manager
type EnforcedConfig struct {
	Horizon              int                    `yaml:"horizon" json:"horizon"`
	ObservationsPerCycle int                    `yaml:"observations_per_cycle" json:"observationsPerCycle"`
	SurvivalBound        float64                `yaml:"survival_bound" json:"survivalBound"`
	FinalReward          float64                `yaml:"final_reward" json:"finalReward"`
	Approximation        envmodel.Approximation `yaml:"approximation" json:"approximation"`
	Strategy             string                 `yaml:"strategy" json:"strategy"`
	HasECM               bool                   `yaml:"has_ecm" json:"hasECM"`
	TwoLevelTactics      bool                   `yaml:"two_level_tactics" json:"twoLevelTactics"`
}

// DefaultEnforcedConfig returns the standard planner settings
func DefaultEnforcedConfig() EnforcedConfig {
	return EnforcedConfig{
		Horizon:              DefaultHorizon,
		ObservationsPerCycle: 4,
		SurvivalBound:        0.90,
		FinalReward:          planner.DefaultFinalReward,
		Approximation:        envmodel.Mean,
		Strategy:             enforcer.LogGeometric{}.Name(),
	}
}

// Validate checks the planner settings
func (c EnforcedConfig) Validate() error {
	if c.Horizon < 1 {
		return fmt.Errorf("horizon must be at least 1, got %d", c.Horizon)
	}
	if c.ObservationsPerCycle < 1 {
		return fmt.Errorf("observations per cycle must be at least 1, got %d", c.ObservationsPerCycle)
	}
	if c.SurvivalBound <= 0 || c.SurvivalBound > 1 {
		return fmt.Errorf("survival bound must be in (0, 1], got %f", c.SurvivalBound)
	}
	if c.FinalReward < 0 {
		return fmt.Errorf("final reward must be non-negative, got %f", c.FinalReward)
	}
	if _, err := envmodel.ParseApproximation(string(c.Approximation)); err != nil {
		return err
	}
	if _, err := enforcer.StrategyByName(c.Strategy); err != nil {
		return err
	}
	return nil
}

// EnforcedOption configures an Enforced manager
type EnforcedOption func(*Enforced)

// WithMissionPlanner replaces the built-in lookahead for the mission plan
func WithMissionPlanner(p planner.Planner) EnforcedOption {
	return func(e *Enforced) {
		e.mission = p
	}
}

// WithSurvivalPlanner replaces the built-in lookahead for the candidate menu
func WithSurvivalPlanner(p planner.Planner) EnforcedOption {
	return func(e *Enforced) {
		e.survival = p
	}
}

// WithEnforcerOptions passes options to the enforcer
func WithEnforcerOptions(opts ...enforcer.Option) EnforcedOption {
	return func(e *Enforced) {
		e.enforcerOpts = append(e.enforcerOpts, opts...)
	}
}

// WithManagerLogger sets the logger of the manager
func WithManagerLogger(l logger.Logger) EnforcedOption {
	return func(e *Enforced) {
		e.log = l
	}
}

// Enforced plans for detections and lets the Survivability Enforcer
// override the plan when it would not keep the mission survivable.
type Enforced struct {
	cfg         EnforcedConfig
	threatModel dartsim.ThreatModel

	mission  planner.Planner
	survival planner.Planner

	missionUtility  planner.Utility
	survivalUtility planner.Utility

	threats *envmodel.Monitor
	targets *envmodel.Monitor
	builder envmodel.Builder

	enforcer     *enforcer.Enforcer
	enforcerOpts []enforcer.Option
	log          logger.Logger

	pending   bool
	last      enforcer.Decision
	decided   bool
	overrides int
}

// NewEnforced creates the manager for a mission with params
func NewEnforced(params dartsim.SimulationParams, cfg EnforcedConfig, opts ...EnforcedOption) (*Enforced, error) {
	approx, err := envmodel.ParseApproximation(string(cfg.Approximation))
	if err != nil {
		return nil, err
	}
	cfg.Approximation = approx
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid enforced config: %w", err)
	}
	strategy, err := enforcer.StrategyByName(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	space := planner.ConfigurationSpace{
		AltitudeLevels:  params.AltitudeLevels,
		Latency:         params.ChangeAltitudeLatencyPeriods,
		HasECM:          cfg.HasECM,
		TwoLevelTactics: cfg.TwoLevelTactics,
	}
	e := &Enforced{
		cfg:             cfg,
		threatModel:     params.ThreatModel(),
		mission:         planner.NewLookahead(space),
		survival:        planner.NewLookahead(space),
		missionUtility:  planner.NewDetectionUtility(params, cfg.FinalReward),
		survivalUtility: planner.NewSurvivalUtility(params),
		threats:         envmodel.NewMonitor(),
		targets:         envmodel.NewMonitor(),
		builder:         envmodel.Builder{Approximation: approx},
		log:             logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}

	enfOpts := append([]enforcer.Option{
		enforcer.WithStrategy(strategy),
		enforcer.WithLogger(e.log),
	}, e.enforcerOpts...)
	e.enforcer, err = enforcer.New(cfg.SurvivalBound, enfOpts...)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Enforced) Name() string { return "enforced" }

// Enforcer exposes the enforcer, mainly for its commit history
func (e *Enforced) Enforcer() *enforcer.Enforcer {
	return e.enforcer
}

// Overrides is the number of epochs where the enforcer replaced the plan
func (e *Enforced) Overrides() int {
	return e.overrides
}

// LastDecision returns the enforcer decision of the latest epoch
func (e *Enforced) LastDecision() (enforcer.Decision, bool) {
	return e.last, e.decided
}

func (e *Enforced) Decide(sim *dartsim.Simulator) (dartsim.TacticSet, error) {
	e.commit(sim)

	state := sim.State()
	e.threats.Clear()
	e.targets.Clear()
	threatObs := sim.ReadForwardThreatSensorObservations(e.cfg.Horizon, e.cfg.ObservationsPerCycle)
	targetObs := sim.ReadForwardTargetSensorObservations(e.cfg.Horizon, e.cfg.ObservationsPerCycle)

	// only the cells inside the map were sensed
	points := sim.ForwardRoute(e.cfg.Horizon).Points()
	route := dartsim.NewRouteFromPoints(points[:len(threatObs)])
	e.threats.UpdateObservations(route, threatObs)
	e.targets.UpdateObservations(route, targetObs)

	model := e.builder.Build(route, e.threats, e.targets)
	if model.Steps() == 0 {
		return dartsim.TacticSet{}, fmt.Errorf("no cell ahead of %s to plan over", state.Position)
	}

	plan := e.mission.Evaluate(state.Config, model, e.missionUtility, e.cfg.Horizon)
	e.survival.Evaluate(state.Config, model, e.survivalUtility, e.cfg.Horizon)
	candidates := e.survival.CandidateOutcomes()

	d := e.enforcer.Decide(plan, candidates)
	if d.Overridden(plan) {
		e.overrides++
	}
	e.last, e.decided = d, true
	e.pending = true

	if err := sim.CheckTactics(d.Tactics); err != nil {
		return d.Tactics, fmt.Errorf("enforced tactics %s: %w", d.Tactics, err)
	}
	return d.Tactics, nil
}

// Finish commits the last epoch
func (e *Enforced) Finish(sim *dartsim.Simulator) {
	e.commit(sim)
}

// commit records the realized survival of the previous epoch: the survival
// probability of the configuration flown over a threat, or 1 without one.
func (e *Enforced) commit(sim *dartsim.Simulator) {
	if !e.pending {
		return
	}
	p := 1.0
	if threat, cfg := sim.WasThereAThreat(); threat {
		p = 1 - e.threatModel.Probability(cfg)
	}
	e.enforcer.Commit(p)
	e.pending = false
}
