package reporting

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/enforcer"
)

func sampleRecords() []adaptation.StepRecord {
	return []adaptation.StepRecord{
		{Step: 1, Position: dartsim.Coordinate{X: 0}, Tactics: dartsim.NewTacticSet(dartsim.DecAlt)},
		{Step: 2, Position: dartsim.Coordinate{X: 1}, Detected: true},
		{
			Step:     3,
			Position: dartsim.Coordinate{X: 2},
			Tactics:  dartsim.NewTacticSet(dartsim.GoTight),
			Decision: &enforcer.Decision{Tactics: dartsim.NewTacticSet(dartsim.GoTight), Probability: 0.8, Passed: false},
		},
		{Step: 4, Position: dartsim.Coordinate{X: 3}, Destroyed: true},
	}
}

func newQuietLogger() *MissionLogger {
	ml := NewMissionLogger("0123456789abcdef")
	ml.SetOutput(io.Discard)
	return ml
}

func TestMissionLoggerObserve(t *testing.T) {
	ml := newQuietLogger()
	for _, rec := range sampleRecords() {
		ml.Observe(rec)
	}
	ml.LogSystem("seed %d", 7)

	summary := ml.GetSummary()
	expected := map[string]int{
		EventTypeTactics:     2,
		EventTypeDetection:   1,
		EventTypeEnforcement: 1,
		EventTypeShortfall:   1,
		EventTypeDestruction: 1,
		EventTypeSystem:      1,
	}
	for eventType, want := range expected {
		if got := summary.EventCounts[eventType]; got != want {
			t.Errorf("Expected %d %s events, got %d", want, eventType, got)
		}
	}
	if summary.TotalEvents != 7 {
		t.Errorf("Expected 7 events, got %d", summary.TotalEvents)
	}
}

func TestMissionLoggerEcho(t *testing.T) {
	var buf bytes.Buffer
	ml := NewMissionLogger("run")
	ml.SetOutput(&buf)

	ml.Observe(adaptation.StepRecord{Step: 5, Position: dartsim.Coordinate{X: 4}, Detected: true, Tactics: dartsim.NewTacticSet(dartsim.IncAlt)})
	out := buf.String()
	if !strings.Contains(out, "Target detected at (4,0)") {
		t.Errorf("Expected the detection echoed, got %q", out)
	}
	if strings.Contains(out, "Executing") {
		t.Errorf("Debug events should not be echoed, got %q", out)
	}

	buf.Reset()
	ml.SetQuiet(true)
	ml.Observe(adaptation.StepRecord{Step: 6, Destroyed: true})
	if buf.Len() != 0 {
		t.Errorf("Expected no output when quiet, got %q", buf.String())
	}
}

func TestReportSave(t *testing.T) {
	ml := newQuietLogger()
	for _, rec := range sampleRecords() {
		ml.Observe(rec)
	}
	results := dartsim.Results{TargetsDetected: 1, Destroyed: true, WhereDestroyed: dartsim.Coordinate{X: 3}, Steps: 4}
	enf := &EnforcementSummary{Epochs: 4, Shortfalls: 1, CumulativeSurvival: 0.8, Bound: 0.9, Strategy: "log-geometric"}

	for _, format := range []string{"json", "markdown", "html"} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			gen := NewReportGenerator(ml, ReportConfig{OutputDir: dir, Format: format, Simulation: "DART Enforced", Manager: "enforced"})
			report := gen.Generate(results, "X\n", enf)

			if report.Summary.Outcome != "DESTROYED" {
				t.Errorf("Expected outcome DESTROYED, got %s", report.Summary.Outcome)
			}
			if len(report.Timeline) != 4 {
				t.Errorf("Expected 4 significant events, got %d", len(report.Timeline))
			}

			path, err := gen.Save(report)
			if err != nil {
				t.Fatalf("Failed to save report: %v", err)
			}
			if !strings.HasPrefix(filepath.Base(path), "DART_01234567_") {
				t.Errorf("Unexpected report name %s", filepath.Base(path))
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("Failed to read report: %v", err)
			}
			if !strings.Contains(string(data), "log-geometric") {
				t.Errorf("Expected the strategy in the %s report", format)
			}
		})
	}

	gen := NewReportGenerator(ml, ReportConfig{OutputDir: t.TempDir(), Format: "pdf"})
	if _, err := gen.Save(gen.Generate(results, "", nil)); err == nil {
		t.Error("Expected error for an unsupported format")
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		results dartsim.Results
		want    string
	}{
		{dartsim.Results{Destroyed: true, MissionSuccess: false}, "DESTROYED"},
		{dartsim.Results{MissionSuccess: true}, "SUCCESS"},
		{dartsim.Results{}, "SURVIVED"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.results); got != tt.want {
			t.Errorf("Expected %s, got %s", tt.want, got)
		}
	}
}

func TestEventStream(t *testing.T) {
	var buf bytes.Buffer
	stream := NewEventStream(&buf, "run-1")
	for _, rec := range sampleRecords() {
		stream.Observe(rec)
	}
	stream.Finish(dartsim.Results{TargetsDetected: 1, Destroyed: true, Steps: 4}, time.Second)
	if err := stream.Close(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var line map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("Invalid JSON line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 5 {
		t.Fatalf("Expected 5 lines, got %d", len(lines))
	}
	if lines[0]["run"] != "run-1" || lines[0]["message"] != "step" {
		t.Errorf("Unexpected first line: %v", lines[0])
	}
	if _, ok := lines[2]["enforcer"]; !ok {
		t.Errorf("Expected enforcer details on step 3, got %v", lines[2])
	}
	if lines[4]["message"] != "results" || lines[4]["outcome"] != "DESTROYED" {
		t.Errorf("Unexpected results line: %v", lines[4])
	}
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	results := dartsim.Results{
		TargetsDetected: 3,
		MissionSuccess:  true,
		WhereDestroyed:  dartsim.Coordinate{X: 39},
		DecisionTimeAvg: 1.5,
		DecisionTimeVar: 0.25,
	}
	if err := WriteResults(&buf, results); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := "Total targets detected: 3\n" +
		"out:destroyed=0\n" +
		"out:targetsDetected=3\n" +
		"out:missionSuccess=1\n" +
		"csv,3,0,39,1,1.5,0.25\n"
	if buf.String() != expected {
		t.Errorf("Expected:\n%s\ngot:\n%s", expected, buf.String())
	}
}
