package dartsim

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Tactic is a named control action applied to the team configuration
type Tactic string

const (
	IncAlt  Tactic = "IncAlt"
	DecAlt  Tactic = "DecAlt"
	IncAlt2 Tactic = "IncAlt2"
	DecAlt2 Tactic = "DecAlt2"
	GoTight Tactic = "GoTight"
	GoLoose Tactic = "GoLoose"
	EcmOn   Tactic = "EcmOn"
	EcmOff  Tactic = "EcmOff"
)

var (
	ErrUnknownTactic      = errors.New("unknown tactic")
	ErrConflictingTactics = errors.New("conflicting tactics")
)

// AllTactics lists every tactic label
var AllTactics = []Tactic{IncAlt, DecAlt, IncAlt2, DecAlt2, GoTight, GoLoose, EcmOn, EcmOff}

// ParseTactic converts a label into a Tactic
func ParseTactic(label string) (Tactic, error) {
	for _, t := range AllTactics {
		if string(t) == label {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTactic, label)
}

// Known reports whether t is one of the fixed labels
func (t Tactic) Known() bool {
	_, err := ParseTactic(string(t))
	return err == nil
}

// altitudeDelta returns the altitude change of an altitude tactic
func (t Tactic) altitudeDelta() (int, bool) {
	switch t {
	case IncAlt:
		return 1, true
	case DecAlt:
		return -1, true
	case IncAlt2:
		return 2, true
	case DecAlt2:
		return -2, true
	}
	return 0, false
}

// TacticSet is an unordered set of tactics kept in canonical (sorted) form,
// so two sets with the same members compare equal.
type TacticSet struct {
	tactics []Tactic
}

// NewTacticSet builds a canonical set, dropping duplicates
func NewTacticSet(tactics ...Tactic) TacticSet {
	seen := make(map[Tactic]bool, len(tactics))
	out := make([]Tactic, 0, len(tactics))
	for _, t := range tactics {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return TacticSet{tactics: out}
}

// ParseTacticSet builds a set from labels, rejecting unknown ones
func ParseTacticSet(labels ...string) (TacticSet, error) {
	tactics := make([]Tactic, 0, len(labels))
	for _, l := range labels {
		t, err := ParseTactic(l)
		if err != nil {
			return TacticSet{}, err
		}
		tactics = append(tactics, t)
	}
	return NewTacticSet(tactics...), nil
}

// Tactics returns the members in canonical order
func (s TacticSet) Tactics() []Tactic {
	out := make([]Tactic, len(s.tactics))
	copy(out, s.tactics)
	return out
}

func (s TacticSet) Len() int {
	return len(s.tactics)
}

func (s TacticSet) Empty() bool {
	return len(s.tactics) == 0
}

func (s TacticSet) Contains(t Tactic) bool {
	for _, m := range s.tactics {
		if m == t {
			return true
		}
	}
	return false
}

// Equal reports set equality
func (s TacticSet) Equal(o TacticSet) bool {
	if len(s.tactics) != len(o.tactics) {
		return false
	}
	for i := range s.tactics {
		if s.tactics[i] != o.tactics[i] {
			return false
		}
	}
	return true
}

// Validate rejects unknown labels and sets that combine contradictory
// tactics: both formations, both ECM states, or more than one altitude change.
func (s TacticSet) Validate() error {
	altitude := 0
	for _, t := range s.tactics {
		if !t.Known() {
			return fmt.Errorf("%w: %q", ErrUnknownTactic, string(t))
		}
		if _, ok := t.altitudeDelta(); ok {
			altitude++
		}
	}
	if altitude > 1 {
		return fmt.Errorf("%w: more than one altitude change in %s", ErrConflictingTactics, s)
	}
	if s.Contains(GoTight) && s.Contains(GoLoose) {
		return fmt.Errorf("%w: %s and %s", ErrConflictingTactics, GoTight, GoLoose)
	}
	if s.Contains(EcmOn) && s.Contains(EcmOff) {
		return fmt.Errorf("%w: %s and %s", ErrConflictingTactics, EcmOn, EcmOff)
	}
	return nil
}

func (s TacticSet) String() string {
	labels := make([]string, len(s.tactics))
	for i, t := range s.tactics {
		labels[i] = string(t)
	}
	return "[" + strings.Join(labels, " ") + "]"
}

// MarshalJSON encodes the set as a sorted array of labels
func (s TacticSet) MarshalJSON() ([]byte, error) {
	labels := make([]string, len(s.tactics))
	for i, t := range s.tactics {
		labels[i] = string(t)
	}
	return json.Marshal(labels)
}

// UnmarshalJSON decodes an array of labels, rejecting unknown ones
func (s *TacticSet) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	set, err := ParseTacticSet(labels...)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
