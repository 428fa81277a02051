package dartsim

import (
	"strings"

	"github.com/fatih/color"
)

const (
	markEmpty    = ' '
	markThreat   = '^'
	markTarget   = 'T'
	markDetected = 'X'
	markLoose    = '#'
	markLooseECM = '@'
	markTight    = '*'
	markTightECM = '0'
)

// The screen has one column per waypoint. Rows 0..altitudeLevels-1 hold the
// team track, followed by one row of threats and one row of targets.
func (s *Simulator) initScreen() {
	levels := s.params.AltitudeLevels
	s.screen = make([][]byte, s.route.Len())
	for p := range s.screen {
		col := make([]byte, levels+2)
		for i := range col {
			col[i] = markEmpty
		}
		if s.threats.IsObjectAt(s.route.At(p)) {
			col[levels] = markThreat
		}
		if s.targets.IsObjectAt(s.route.At(p)) {
			col[levels+1] = markTarget
		}
		s.screen[p] = col
	}
}

func (s *Simulator) markTeam() {
	mark := byte(markLoose)
	switch {
	case s.config.Formation == Loose && s.config.ECM:
		mark = markLooseECM
	case s.config.Formation == Tight && !s.config.ECM:
		mark = markTight
	case s.config.Formation == Tight && s.config.ECM:
		mark = markTightECM
	}
	s.screen[s.routeIndex][s.config.AltitudeLevel] = mark
}

func (s *Simulator) markDetection() {
	s.screen[s.routeIndex][s.params.AltitudeLevels+1] = markDetected
}

// ScreenOutput renders the mission as text, highest altitude first, then the
// threat row and the target row.
func (s *Simulator) ScreenOutput() string {
	return s.render(func(b byte) string { return string(b) })
}

var (
	threatColor   = color.New(color.FgRed, color.Bold)
	targetColor   = color.New(color.FgYellow)
	detectedColor = color.New(color.FgGreen, color.Bold)
	teamColor     = color.New(color.FgCyan)
)

// ColorScreenOutput is ScreenOutput with terminal colors. Colors are dropped
// when color.NoColor is set.
func (s *Simulator) ColorScreenOutput() string {
	return s.render(func(b byte) string {
		switch b {
		case markEmpty:
			return " "
		case markThreat:
			return threatColor.Sprint(string(b))
		case markTarget:
			return targetColor.Sprint(string(b))
		case markDetected:
			return detectedColor.Sprint(string(b))
		default:
			return teamColor.Sprint(string(b))
		}
	})
}

func (s *Simulator) render(cell func(byte) string) string {
	levels := s.params.AltitudeLevels
	var sb strings.Builder
	row := func(r int) {
		for p := range s.screen {
			sb.WriteString(cell(s.screen[p][r]))
		}
		sb.WriteByte('\n')
	}
	for h := levels - 1; h >= 0; h-- {
		row(h)
	}
	row(levels)
	row(levels + 1)
	return sb.String()
}
