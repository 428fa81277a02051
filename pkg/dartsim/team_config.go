package dartsim

import (
	"errors"
	"fmt"
)

// Formation of the team
type Formation int

const (
	Loose Formation = iota
	Tight
)

func (f Formation) String() string {
	if f == Tight {
		return "TIGHT"
	}
	return "LOOSE"
}

// ErrAltitudeChangeInProgress is returned when an altitude tactic is issued
// while another altitude change is still counting down.
var ErrAltitudeChangeInProgress = errors.New("altitude change already in progress")

// TeamConfiguration is the controllable state of the team. AltitudeLevel is
// 0-based: level 0 is one level above the ground and the highest level is
// altitudeLevels-1. The TTC counters hold the periods left before a pending
// altitude change completes; 0 means none is pending.
type TeamConfiguration struct {
	AltitudeLevel int       `json:"altitudeLevel"`
	Formation     Formation `json:"formation"`
	ECM           bool      `json:"ecm"`
	TTCIncAlt     int       `json:"ttcIncAlt"`
	TTCDecAlt     int       `json:"ttcDecAlt"`
	TTCIncAlt2    int       `json:"ttcIncAlt2"`
	TTCDecAlt2    int       `json:"ttcDecAlt2"`
}

// AltitudeChangeInProgress reports whether any altitude counter is running
func (c TeamConfiguration) AltitudeChangeInProgress() bool {
	return c.TTCIncAlt > 0 || c.TTCDecAlt > 0 || c.TTCIncAlt2 > 0 || c.TTCDecAlt2 > 0
}

// Execute applies a single tactic. Altitude tactics start their countdown
// when latency > 0 and take effect immediately otherwise.
func (c *TeamConfiguration) Execute(t Tactic, latency, altitudeLevels int) error {
	if delta, ok := t.altitudeDelta(); ok {
		if c.AltitudeChangeInProgress() {
			return fmt.Errorf("%w: cannot execute %s", ErrAltitudeChangeInProgress, t)
		}
		if latency == 0 {
			c.changeAltitude(delta, altitudeLevels)
			return nil
		}
		*c.counter(t) = latency
		return nil
	}

	switch t {
	case GoTight:
		c.Formation = Tight
	case GoLoose:
		c.Formation = Loose
	case EcmOn:
		c.ECM = true
	case EcmOff:
		c.ECM = false
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTactic, string(t))
	}
	return nil
}

// ExecuteAll validates the set and applies every member
func (c *TeamConfiguration) ExecuteAll(tactics TacticSet, latency, altitudeLevels int) error {
	if err := tactics.Validate(); err != nil {
		return err
	}
	for _, t := range tactics.tactics {
		if err := c.Execute(t, latency, altitudeLevels); err != nil {
			return err
		}
	}
	return nil
}

// EvolveLatency advances every running counter by one period and applies the
// pending altitude change of each counter that reaches zero.
func (c *TeamConfiguration) EvolveLatency(altitudeLevels int) {
	for _, t := range []Tactic{IncAlt, DecAlt, IncAlt2, DecAlt2} {
		ttc := c.counter(t)
		if *ttc == 0 {
			continue
		}
		*ttc--
		if *ttc == 0 {
			delta, _ := t.altitudeDelta()
			c.changeAltitude(delta, altitudeLevels)
		}
	}
}

func (c *TeamConfiguration) counter(t Tactic) *int {
	switch t {
	case IncAlt:
		return &c.TTCIncAlt
	case DecAlt:
		return &c.TTCDecAlt
	case IncAlt2:
		return &c.TTCIncAlt2
	default:
		return &c.TTCDecAlt2
	}
}

func (c *TeamConfiguration) changeAltitude(delta, altitudeLevels int) {
	level := c.AltitudeLevel + delta
	if level > altitudeLevels-1 {
		level = altitudeLevels - 1
	}
	if level < 0 {
		level = 0
	}
	c.AltitudeLevel = level
}

func (c TeamConfiguration) String() string {
	return fmt.Sprintf("alt=%d formation=%s ecm=%t ttc=[%d %d %d %d]",
		c.AltitudeLevel, c.Formation, c.ECM, c.TTCIncAlt, c.TTCDecAlt, c.TTCIncAlt2, c.TTCDecAlt2)
}
