package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/dartsim"
)

// MissionLogger records the notable events of a mission and echoes them to
// the console
type MissionLogger struct {
	runID     string
	startTime time.Time
	events    []MissionEvent
	out       io.Writer
	quiet     bool
	mu        sync.RWMutex
}

// MissionEvent represents a logged mission event
type MissionEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	Step      int                    `json:"step"`
	Type      string                 `json:"type"`
	Severity  string                 `json:"severity"`
	Position  dartsim.Coordinate     `json:"position"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// EventType constants
const (
	EventTypeTactics     = "tactics"
	EventTypeDetection   = "detection"
	EventTypeDestruction = "destruction"
	EventTypeEnforcement = "enforcement"
	EventTypeShortfall   = "shortfall"
	EventTypeSystem      = "system"
)

// Severity constants
const (
	SeverityDebug    = "debug"
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

var (
	colorDebug    = color.New(color.FgHiBlack)
	colorInfo     = color.New(color.FgCyan)
	colorWarning  = color.New(color.FgYellow)
	colorCritical = color.New(color.FgRed, color.Bold)
	colorSuccess  = color.New(color.FgGreen)
)

// NewMissionLogger creates a mission logger writing to stdout
func NewMissionLogger(runID string) *MissionLogger {
	return &MissionLogger{
		runID:     runID,
		startTime: time.Now(),
		events:    make([]MissionEvent, 0),
		out:       os.Stdout,
	}
}

// SetOutput redirects the console echo
func (ml *MissionLogger) SetOutput(w io.Writer) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.out = w
}

// SetQuiet disables the console echo; events are still recorded
func (ml *MissionLogger) SetQuiet(quiet bool) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.quiet = quiet
}

// RunID returns the identifier of the run
func (ml *MissionLogger) RunID() string {
	return ml.runID
}

// Observe records the events of one step
func (ml *MissionLogger) Observe(rec adaptation.StepRecord) {
	if !rec.Tactics.Empty() {
		ml.logEvent(MissionEvent{
			Step:     rec.Step,
			Type:     EventTypeTactics,
			Severity: SeverityDebug,
			Position: rec.Position,
			Message:  fmt.Sprintf("Executing %s", rec.Tactics),
			Details: map[string]interface{}{
				"altitude":  rec.Config.AltitudeLevel,
				"formation": rec.Config.Formation.String(),
			},
		})
	}

	if d := rec.Decision; d != nil {
		if !d.PassThrough {
			ml.logEvent(MissionEvent{
				Step:     rec.Step,
				Type:     EventTypeEnforcement,
				Severity: SeverityInfo,
				Position: rec.Position,
				Message:  fmt.Sprintf("Enforcer chose %s (p=%.4f)", d.Tactics, d.Probability),
				Details: map[string]interface{}{
					"probability": d.Probability,
					"target":      d.Target,
				},
			})
		}
		if !d.Passed {
			ml.logEvent(MissionEvent{
				Step:     rec.Step,
				Type:     EventTypeShortfall,
				Severity: SeverityWarning,
				Position: rec.Position,
				Message:  fmt.Sprintf("No candidate reaches the survival target (delta %.4f)", d.Delta),
			})
		}
	}

	if rec.Detected {
		ml.logEvent(MissionEvent{
			Step:     rec.Step,
			Type:     EventTypeDetection,
			Severity: SeverityInfo,
			Position: rec.Position,
			Message:  "Target detected",
		})
	}

	if rec.Destroyed {
		ml.logEvent(MissionEvent{
			Step:     rec.Step,
			Type:     EventTypeDestruction,
			Severity: SeverityCritical,
			Position: rec.Position,
			Message:  "Team destroyed",
			Details: map[string]interface{}{
				"altitude":  rec.Config.AltitudeLevel,
				"formation": rec.Config.Formation.String(),
			},
		})
	}
}

// LogSystem records a free-form event. Its signature matches
// dartsim.WithEventLog.
func (ml *MissionLogger) LogSystem(format string, args ...interface{}) {
	ml.logEvent(MissionEvent{
		Type:     EventTypeSystem,
		Severity: SeverityDebug,
		Message:  fmt.Sprintf(format, args...),
	})
}

// GetEvents returns all logged events
func (ml *MissionLogger) GetEvents() []MissionEvent {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	events := make([]MissionEvent, len(ml.events))
	copy(events, ml.events)
	return events
}

// MissionSummary represents a summary of the logged events
type MissionSummary struct {
	RunID       string
	StartTime   time.Time
	Duration    time.Duration
	TotalEvents int
	EventCounts map[string]int
}

// GetSummary returns a summary of the events so far
func (ml *MissionLogger) GetSummary() MissionSummary {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	counts := make(map[string]int)
	for _, event := range ml.events {
		counts[event.Type]++
	}

	return MissionSummary{
		RunID:       ml.runID,
		StartTime:   ml.startTime,
		Duration:    time.Since(ml.startTime),
		TotalEvents: len(ml.events),
		EventCounts: counts,
	}
}

// PrintSummary prints the event distribution
func (ml *MissionLogger) PrintSummary() {
	summary := ml.GetSummary()
	ml.mu.RLock()
	out := ml.out
	ml.mu.RUnlock()

	colorSuccess.Fprintf(out, "\n=== MISSION SUMMARY - %s ===\n", shortID(summary.RunID))
	fmt.Fprintf(out, "Duration: %v | Total Events: %d\n", summary.Duration.Round(time.Millisecond), summary.TotalEvents)

	types := make([]string, 0, len(summary.EventCounts))
	for t := range summary.EventCounts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(out, "   %-12s: %d\n", t, summary.EventCounts[t])
	}
}

func (ml *MissionLogger) logEvent(event MissionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	ml.events = append(ml.events, event)

	// Keep only last 10000 events
	if len(ml.events) > 10000 {
		ml.events = ml.events[len(ml.events)-10000:]
	}

	if !ml.quiet && event.Severity != SeverityDebug {
		ml.printEvent(event)
	}
}

func (ml *MissionLogger) printEvent(event MissionEvent) {
	var c *color.Color
	switch event.Severity {
	case SeverityInfo:
		c = colorInfo
	case SeverityWarning:
		c = colorWarning
	case SeverityCritical:
		c = colorCritical
	default:
		c = colorDebug
	}
	fmt.Fprintf(ml.out, "[%4d] %s %-11s | %s at %s\n",
		event.Step,
		c.Sprint(fmt.Sprintf("%-8s", event.Severity)),
		event.Type,
		event.Message,
		event.Position)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
