package reporting

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/logger"
)

// ReportGenerator generates mission reports
type ReportGenerator struct {
	logger *MissionLogger
	config ReportConfig
}

// ReportConfig configures report generation
type ReportConfig struct {
	OutputDir  string
	Format     string // "json", "html", "markdown"
	Simulation string
	Manager    string
	Parameters dartsim.SimulationParams
}

// Report is the outcome of one mission
type Report struct {
	Metadata    ReportMetadata           `json:"metadata"`
	Summary     ResultSummary            `json:"summary"`
	Enforcement *EnforcementSummary      `json:"enforcement,omitempty"`
	Timeline    []MissionEvent           `json:"timeline"`
	EventCounts map[string]int           `json:"event_counts"`
	Parameters  dartsim.SimulationParams `json:"parameters"`
	Screen      string                   `json:"screen,omitempty"`
}

// ReportMetadata contains report metadata
type ReportMetadata struct {
	RunID       string    `json:"run_id"`
	Simulation  string    `json:"simulation"`
	Manager     string    `json:"manager"`
	GeneratedAt time.Time `json:"generated_at"`
	StartedAt   time.Time `json:"started_at"`
	Duration    string    `json:"duration"`
}

// ResultSummary restates dartsim.Results for the report
type ResultSummary struct {
	Outcome         string             `json:"outcome"`
	TargetsDetected int                `json:"targets_detected"`
	Destroyed       bool               `json:"destroyed"`
	WhereDestroyed  dartsim.Coordinate `json:"where_destroyed"`
	MissionSuccess  bool               `json:"mission_success"`
	Steps           int                `json:"steps"`
	DecisionTimeAvg float64            `json:"decision_time_avg_ms"`
	DecisionTimeVar float64            `json:"decision_time_var_ms2"`
}

// EnforcementSummary describes the enforcer over the whole mission
type EnforcementSummary struct {
	Epochs             int     `json:"epochs"`
	Overrides          int     `json:"overrides"`
	Shortfalls         int     `json:"shortfalls"`
	CumulativeSurvival float64 `json:"cumulative_survival"`
	Bound              float64 `json:"bound"`
	Strategy           string  `json:"strategy"`
}

// NewReportGenerator creates a new report generator
func NewReportGenerator(logger *MissionLogger, config ReportConfig) *ReportGenerator {
	return &ReportGenerator{
		logger: logger,
		config: config,
	}
}

// Generate creates the report of a finished mission. enforcement may be nil
// for managers that do not enforce survivability.
func (g *ReportGenerator) Generate(results dartsim.Results, screen string, enforcement *EnforcementSummary) *Report {
	summary := g.logger.GetSummary()

	return &Report{
		Metadata: ReportMetadata{
			RunID:       summary.RunID,
			Simulation:  g.config.Simulation,
			Manager:     g.config.Manager,
			GeneratedAt: time.Now(),
			StartedAt:   summary.StartTime,
			Duration:    summary.Duration.Round(time.Millisecond).String(),
		},
		Summary: ResultSummary{
			Outcome:         Outcome(results),
			TargetsDetected: results.TargetsDetected,
			Destroyed:       results.Destroyed,
			WhereDestroyed:  results.WhereDestroyed,
			MissionSuccess:  results.MissionSuccess,
			Steps:           results.Steps,
			DecisionTimeAvg: results.DecisionTimeAvg,
			DecisionTimeVar: results.DecisionTimeVar,
		},
		Enforcement: enforcement,
		Timeline:    significant(g.logger.GetEvents()),
		EventCounts: summary.EventCounts,
		Parameters:  g.config.Parameters,
		Screen:      screen,
	}
}

// Outcome names the result of a mission
func Outcome(results dartsim.Results) string {
	switch {
	case results.Destroyed:
		return "DESTROYED"
	case results.MissionSuccess:
		return "SUCCESS"
	default:
		return "SURVIVED"
	}
}

// Save writes the report and returns the file path
func (g *ReportGenerator) Save(report *Report) (string, error) {
	if err := os.MkdirAll(g.config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := report.Metadata.GeneratedAt.Format("20060102_150405")
	filename := fmt.Sprintf("DART_%s_%s", shortID(report.Metadata.RunID), timestamp)

	var (
		data []byte
		ext  string
		err  error
	)
	switch g.config.Format {
	case "json":
		data, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal report: %w", err)
		}
		ext = ".json"
	case "html":
		data, ext = []byte(renderHTML(report)), ".html"
	case "markdown":
		data, ext = []byte(renderMarkdown(report)), ".md"
	default:
		return "", fmt.Errorf("unsupported format: %s", g.config.Format)
	}

	path := filepath.Join(g.config.OutputDir, filename+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	logger.Successf("Report saved to: %s", path)
	return path, nil
}

func significant(events []MissionEvent) []MissionEvent {
	out := make([]MissionEvent, 0, len(events))
	for _, e := range events {
		if e.Severity != SeverityDebug {
			out = append(out, e)
		}
	}
	return out
}

func sortedCounts(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func renderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# DART Mission Report\n\n")
	sb.WriteString(fmt.Sprintf("**Run ID:** %s\n", r.Metadata.RunID))
	sb.WriteString(fmt.Sprintf("**Simulation:** %s (%s)\n", r.Metadata.Simulation, r.Metadata.Manager))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", r.Metadata.GeneratedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("**Duration:** %s\n\n", r.Metadata.Duration))

	sb.WriteString("## Results\n\n")
	sb.WriteString(fmt.Sprintf("**Outcome:** %s\n\n", r.Summary.Outcome))
	sb.WriteString(fmt.Sprintf("- **Targets Detected:** %d\n", r.Summary.TargetsDetected))
	if r.Summary.Destroyed {
		sb.WriteString(fmt.Sprintf("- **Destroyed At:** %s\n", r.Summary.WhereDestroyed))
	}
	sb.WriteString(fmt.Sprintf("- **Steps:** %d\n", r.Summary.Steps))
	sb.WriteString(fmt.Sprintf("- **Decision Time:** %.3fms avg, %.3f var\n\n", r.Summary.DecisionTimeAvg, r.Summary.DecisionTimeVar))

	if e := r.Enforcement; e != nil {
		sb.WriteString("## Survivability Enforcement\n\n")
		sb.WriteString(fmt.Sprintf("- **Strategy:** %s (bound %.3f)\n", e.Strategy, e.Bound))
		sb.WriteString(fmt.Sprintf("- **Epochs:** %d\n", e.Epochs))
		sb.WriteString(fmt.Sprintf("- **Overrides:** %d\n", e.Overrides))
		sb.WriteString(fmt.Sprintf("- **Shortfalls:** %d\n", e.Shortfalls))
		sb.WriteString(fmt.Sprintf("- **Cumulative Survival:** %.4f\n\n", e.CumulativeSurvival))
	}

	if r.Screen != "" {
		sb.WriteString("## Route\n\n```\n")
		sb.WriteString(r.Screen)
		sb.WriteString("```\n\n")
	}

	if len(r.Timeline) > 0 {
		sb.WriteString("## Timeline\n\n")
		sb.WriteString("| Step | Position | Type | Message |\n|---|---|---|---|\n")
		for _, e := range r.Timeline {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n", e.Step, e.Position, e.Type, e.Message))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Event Distribution\n\n")
	for _, k := range sortedCounts(r.EventCounts) {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", k, r.EventCounts[k]))
	}

	return sb.String()
}

func renderHTML(r *Report) string {
	var sb strings.Builder

	sb.WriteString(`<!DOCTYPE html>
<html>
<head>
	<title>DART Mission Report</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 40px; background-color: #f5f5f5; }
		.container { background-color: white; padding: 30px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
		h1 { color: #333; border-bottom: 3px solid #007bff; padding-bottom: 10px; }
		h2 { color: #007bff; margin-top: 30px; }
		.metric { display: inline-block; margin: 10px 20px 10px 0; }
		.metric-label { font-weight: bold; color: #666; }
		.metric-value { font-size: 1.2em; color: #007bff; }
		.outcome-success { color: #28a745; }
		.outcome-survived { color: #ffc107; }
		.outcome-destroyed { color: #dc3545; }
		table { border-collapse: collapse; width: 100%; margin: 20px 0; }
		th, td { padding: 12px; text-align: left; border-bottom: 1px solid #ddd; }
		th { background-color: #007bff; color: white; }
		pre { background-color: #f8f9fa; padding: 10px; }
	</style>
</head>
<body>
<div class="container">
`)

	sb.WriteString("<h1>DART Mission Report</h1>\n")
	sb.WriteString(fmt.Sprintf("<p><strong>Run ID:</strong> %s</p>\n", html.EscapeString(r.Metadata.RunID)))
	sb.WriteString(fmt.Sprintf("<p><strong>Simulation:</strong> %s (%s)</p>\n",
		html.EscapeString(r.Metadata.Simulation), html.EscapeString(r.Metadata.Manager)))
	sb.WriteString(fmt.Sprintf("<p><strong>Generated:</strong> %s</p>\n", r.Metadata.GeneratedAt.Format("2006-01-02 15:04:05")))

	sb.WriteString("<h2>Results</h2>\n")
	sb.WriteString(fmt.Sprintf("<p><strong>Outcome:</strong> <span class='outcome-%s'>%s</span></p>\n",
		strings.ToLower(r.Summary.Outcome), r.Summary.Outcome))
	metric := func(label string, value interface{}) {
		sb.WriteString(fmt.Sprintf("<div class='metric'><span class='metric-label'>%s:</span> <span class='metric-value'>%v</span></div>\n", label, value))
	}
	metric("Targets Detected", r.Summary.TargetsDetected)
	metric("Steps", r.Summary.Steps)
	metric("Decision Time Avg (ms)", fmt.Sprintf("%.3f", r.Summary.DecisionTimeAvg))
	if r.Summary.Destroyed {
		metric("Destroyed At", r.Summary.WhereDestroyed)
	}

	if e := r.Enforcement; e != nil {
		sb.WriteString("<h2>Survivability Enforcement</h2>\n")
		metric("Strategy", html.EscapeString(e.Strategy))
		metric("Bound", fmt.Sprintf("%.3f", e.Bound))
		metric("Overrides", e.Overrides)
		metric("Shortfalls", e.Shortfalls)
		metric("Cumulative Survival", fmt.Sprintf("%.4f", e.CumulativeSurvival))
	}

	if r.Screen != "" {
		sb.WriteString("<h2>Route</h2>\n<pre>")
		sb.WriteString(html.EscapeString(r.Screen))
		sb.WriteString("</pre>\n")
	}

	if len(r.Timeline) > 0 {
		sb.WriteString("<h2>Timeline</h2>\n<table>\n")
		sb.WriteString("<tr><th>Step</th><th>Position</th><th>Type</th><th>Message</th></tr>\n")
		for _, e := range r.Timeline {
			sb.WriteString(fmt.Sprintf("<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				e.Step, e.Position, e.Type, html.EscapeString(e.Message)))
		}
		sb.WriteString("</table>\n")
	}

	sb.WriteString("</div>\n</body>\n</html>\n")
	return sb.String()
}
