package dartsim

import (
	"fmt"
	"math/rand"
	"time"
)

// State is the externally visible team state
type State struct {
	Position   Coordinate        `json:"position"`
	DirectionX float64           `json:"directionX"`
	DirectionY float64           `json:"directionY"`
	Config     TeamConfiguration `json:"config"`
}

// Results is the terminal snapshot of a simulation
type Results struct {
	Destroyed       bool       `json:"destroyed"`
	WhereDestroyed  Coordinate `json:"whereDestroyed"`
	TargetsDetected int        `json:"targetsDetected"`
	MissionSuccess  bool       `json:"missionSuccess"`
	DecisionTimeAvg float64    `json:"decisionTimeAvg"`
	DecisionTimeVar float64    `json:"decisionTimeVar"`
	Steps           int        `json:"steps"`
}

// Option configures a Simulator
type Option func(*options)

type options struct {
	seed    int64
	rng     Random
	logger  func(format string, args ...interface{})
	threats *Environment
	targets *Environment
	route   *Route
}

// WithSeed seeds every random source of the simulator from seed
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithRand shares a single random source between all components. Used by
// tests that script the sequence of draws.
func WithRand(rng Random) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithEventLog receives one line per notable simulation event
func WithEventLog(fn func(format string, args ...interface{})) Option {
	return func(o *options) {
		o.logger = fn
	}
}

// WithEnvironments replaces the generated threat and target maps
func WithEnvironments(threats, targets *Environment) Option {
	return func(o *options) {
		o.threats = threats
		o.targets = targets
	}
}

// WithRoute replaces the generated route
func WithRoute(route Route) Option {
	return func(o *options) {
		o.route = &route
	}
}

type randoms struct {
	fwdThreat Random
	fwdTarget Random
	threat    Random
	target    Random
	threatEnv Random
	targetEnv Random
}

// Simulator moves the team along its route one waypoint per step. It is not
// safe for concurrent use; one instance serves one driver.
type Simulator struct {
	params  SimulationParams
	route   Route
	threats *Environment
	targets *Environment

	threatModel  ThreatModel
	targetSensor TargetSensor
	fwdThreat    Sensor
	fwdTarget    Sensor
	rnd          randoms
	eventLog     func(format string, args ...interface{})

	routeIndex int
	position   Coordinate
	directionX float64
	directionY float64
	config     TeamConfiguration

	destroyed        bool
	targetsDetected  int
	steps            int
	decisionTime     runningStats
	threatInLastStep bool
	configLastStep   TeamConfiguration

	screen [][]byte
}

// New creates a simulator. Parameters are normalized and validated, the
// route and the threat and target maps are generated from the seed.
func New(params SimulationParams, opts ...Option) (*Simulator, error) {
	o := &options{seed: params.Seed}
	for _, opt := range opts {
		opt(o)
	}
	if o.seed == 0 {
		o.seed = time.Now().UnixNano()
	}

	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params.Seed = o.seed

	rnd := newRandoms(o)

	route := defaultRoute(params)
	if o.route != nil {
		route = *o.route
	}
	if route.Len() == 0 {
		return nil, fmt.Errorf("route must have at least one waypoint")
	}

	threats, targets := o.threats, o.targets
	if threats == nil {
		threats = NewEnvironment(params.EnvironmentSize())
		if err := populate(threats, rnd.threatEnv, params.NumThreats, params.SparseHorizon); err != nil {
			return nil, fmt.Errorf("failed to place threats: %w", err)
		}
	}
	if targets == nil {
		targets = NewEnvironment(params.EnvironmentSize())
		if err := populate(targets, rnd.targetEnv, params.NumTargets, 0); err != nil {
			return nil, fmt.Errorf("failed to place targets: %w", err)
		}
	}

	s := &Simulator{
		params:       params,
		route:        route,
		threats:      threats,
		targets:      targets,
		threatModel:  params.ThreatModel(),
		targetSensor: params.TargetSensor(),
		fwdThreat: Sensor{
			FalsePositiveRate: params.LongRangeSensor.ThreatSensorFPR,
			FalseNegativeRate: params.LongRangeSensor.ThreatSensorFNR,
		},
		fwdTarget: Sensor{
			FalsePositiveRate: params.LongRangeSensor.TargetSensorFPR,
			FalseNegativeRate: params.LongRangeSensor.TargetSensorFNR,
		},
		rnd:      rnd,
		eventLog: o.logger,
		position: route.At(0),
		config: TeamConfiguration{
			AltitudeLevel: params.AltitudeLevels - 1,
			Formation:     Loose,
		},
	}
	s.updateDirection()
	s.initScreen()
	return s, nil
}

// NewWithEnvironment creates a simulator over a fixed route and fixed maps
func NewWithEnvironment(params SimulationParams, route Route, threats, targets *Environment, opts ...Option) (*Simulator, error) {
	opts = append([]Option{WithRoute(route), WithEnvironments(threats, targets)}, opts...)
	return New(params, opts...)
}

func newRandoms(o *options) randoms {
	if o.rng != nil {
		return randoms{o.rng, o.rng, o.rng, o.rng, o.rng, o.rng}
	}
	seeds := rand.New(rand.NewSource(o.seed))
	next := func() Random { return rand.New(rand.NewSource(seeds.Int63())) }
	return randoms{
		threatEnv: next(),
		targetEnv: next(),
		fwdThreat: next(),
		fwdTarget: next(),
		threat:    next(),
		target:    next(),
	}
}

func defaultRoute(p SimulationParams) Route {
	if p.SquareMap {
		return NewLawnmowerRoute(p.MapSize, p.MapSize)
	}
	return NewRoute(Coordinate{}, 1, 0, p.MapSize)
}

func populate(env *Environment, rng Random, n, sparseHorizon int) error {
	if sparseHorizon > 0 {
		return env.PopulateSparse(rng, n, sparseHorizon)
	}
	return env.Populate(rng, n)
}

// Parameters returns the normalized parameters in use, including the
// effective seed
func (s *Simulator) Parameters() SimulationParams {
	return s.params
}

// Route returns the mission route
func (s *Simulator) Route() Route {
	return s.route
}

// Threats returns the ground-truth threat map
func (s *Simulator) Threats() *Environment {
	return s.threats
}

// Targets returns the ground-truth target map
func (s *Simulator) Targets() *Environment {
	return s.targets
}

// Finished reports whether the team was destroyed or the route is exhausted
func (s *Simulator) Finished() bool {
	return s.destroyed || s.routeIndex >= s.route.Len()
}

// State returns the current position, heading and configuration
func (s *Simulator) State() State {
	return State{
		Position:   s.position,
		DirectionX: s.directionX,
		DirectionY: s.directionY,
		Config:     s.config,
	}
}

// ReadForwardThreatSensor senses threats on the next cells along the heading
func (s *Simulator) ReadForwardThreatSensor(cells int) []bool {
	return readForward(s.forwardRoute(cells), s.threats, s.fwdThreat, s.rnd.fwdThreat)
}

// ReadForwardTargetSensor senses targets on the next cells along the heading
func (s *Simulator) ReadForwardTargetSensor(cells int) []bool {
	return readForward(s.forwardRoute(cells), s.targets, s.fwdTarget, s.rnd.fwdTarget)
}

// ReadForwardThreatSensorObservations takes several independent readings of
// each forward cell
func (s *Simulator) ReadForwardThreatSensorObservations(cells, observations int) [][]bool {
	return readForwardObservations(s.forwardRoute(cells), s.threats, s.fwdThreat, s.rnd.fwdThreat, observations)
}

// ReadForwardTargetSensorObservations takes several independent readings of
// each forward cell
func (s *Simulator) ReadForwardTargetSensorObservations(cells, observations int) [][]bool {
	return readForwardObservations(s.forwardRoute(cells), s.targets, s.fwdTarget, s.rnd.fwdTarget, observations)
}

// ForwardRoute is the straight line the forward sensors look along
func (s *Simulator) ForwardRoute(cells int) Route {
	return s.forwardRoute(cells)
}

func (s *Simulator) forwardRoute(cells int) Route {
	return NewRoute(s.position, s.directionX, s.directionY, cells)
}

// readForward stops at the first cell outside the map; the route is a
// straight line and the map is convex.
func readForward(route Route, env *Environment, sensor Sensor, rng Random) []bool {
	sensed := make([]bool, 0, route.Len())
	for _, c := range route.points {
		if !c.InsideRect(env.Size()) {
			break
		}
		sensed = append(sensed, sensor.Sense(env.IsObjectAt(c), rng))
	}
	return sensed
}

func readForwardObservations(route Route, env *Environment, sensor Sensor, rng Random, observations int) [][]bool {
	sensed := make([][]bool, 0, route.Len())
	for _, c := range route.points {
		if !c.InsideRect(env.Size()) {
			break
		}
		truth := env.IsObjectAt(c)
		values := make([]bool, observations)
		for i := range values {
			values[i] = sensor.Sense(truth, rng)
		}
		sensed = append(sensed, values)
	}
	return sensed
}

// CheckTactics reports whether tactics can be executed in the current state
func (s *Simulator) CheckTactics(tactics TacticSet) error {
	cfg := s.config
	return cfg.ExecuteAll(tactics, s.params.ChangeAltitudeLatencyPeriods, s.params.AltitudeLevels)
}

// Step executes tactics, lets the threat and target at the current position
// act, then advances one waypoint. It returns whether a target was detected.
// Stepping a finished simulation does nothing. A tactic set rejected by
// CheckTactics (an unknown label, a conflicting pair, or an altitude change
// while another one is in progress) panics; use TryStep to get the error.
func (s *Simulator) Step(tactics TacticSet, decisionTimeMsec float64) bool {
	detected, err := s.TryStep(tactics, decisionTimeMsec)
	if err != nil {
		panic(fmt.Sprintf("dartsim: step %d: %v", s.steps+1, err))
	}
	return detected
}

// TryStep is Step returning the CheckTactics error instead of panicking. The
// simulation is left untouched when the tactics are rejected.
func (s *Simulator) TryStep(tactics TacticSet, decisionTimeMsec float64) (bool, error) {
	if s.Finished() {
		return false, nil
	}
	if err := s.CheckTactics(tactics); err != nil {
		return false, err
	}
	s.decisionTime.add(decisionTimeMsec)
	s.steps++

	_ = s.config.ExecuteAll(tactics, s.params.ChangeAltitudeLatencyPeriods, s.params.AltitudeLevels)
	if !tactics.Empty() {
		s.logf("executing tactics %s at %s", tactics, s.position)
	}
	s.configLastStep = s.config
	s.markTeam()

	s.threatInLastStep = s.threats.IsObjectAt(s.position)
	if s.threatModel.IsDestroyed(s.config, s.threatInLastStep, s.rnd.threat) {
		s.destroyed = true
		s.logf("team destroyed at position %s", s.position)
		return false, nil
	}

	detected := s.targetSensor.Sense(s.config, s.targets.IsObjectAt(s.position), s.rnd.target)
	if detected {
		s.targetsDetected++
		s.markDetection()
		s.logf("target detected at %s", s.position)
	}

	s.routeIndex++
	if s.routeIndex < s.route.Len() {
		s.position = s.route.At(s.routeIndex)
	}
	s.updateDirection()

	s.config.EvolveLatency(s.params.AltitudeLevels)
	return detected, nil
}

// WasThereAThreat reports whether the cell of the last completed step held a
// threat, together with the configuration the team had there.
func (s *Simulator) WasThereAThreat() (bool, TeamConfiguration) {
	return s.threatInLastStep, s.configLastStep
}

// Results returns the outcome so far
func (s *Simulator) Results() Results {
	return Results{
		Destroyed:       s.destroyed,
		WhereDestroyed:  s.position,
		TargetsDetected: s.targetsDetected,
		MissionSuccess:  !s.destroyed && s.targetsDetected >= s.params.MissionSuccessThreshold,
		DecisionTimeAvg: s.decisionTime.avg(),
		DecisionTimeVar: s.decisionTime.variance(),
		Steps:           s.steps,
	}
}

// updateDirection points the heading at the next waypoint, or zero at the end
func (s *Simulator) updateDirection() {
	s.directionX, s.directionY = 0, 0
	next := s.routeIndex + 1
	if s.routeIndex < s.route.Len() && next < s.route.Len() {
		d := s.route.At(next).Sub(s.position)
		s.directionX, s.directionY = float64(d.X), float64(d.Y)
	}
}

func (s *Simulator) logf(format string, args ...interface{}) {
	if s.eventLog != nil {
		s.eventLog(format, args...)
	}
}
