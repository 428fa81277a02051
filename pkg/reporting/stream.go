package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/dartsim"
)

// EventStream writes one JSON object per step, suitable for replay and
// offline analysis
type EventStream struct {
	log    zerolog.Logger
	closer io.Closer
}

// NewEventStream streams to w, tagging every line with runID
func NewEventStream(w io.Writer, runID string) *EventStream {
	return &EventStream{
		log: zerolog.New(w).With().
			Timestamp().
			Str("run", runID).
			Logger(),
	}
}

// OpenEventStream appends the stream to the file at path
func OpenEventStream(path, runID string) (*EventStream, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening event stream: %w", err)
	}
	s := NewEventStream(file, runID)
	s.closer = file
	return s, nil
}

// Observe writes a step event
func (s *EventStream) Observe(rec adaptation.StepRecord) {
	e := s.log.Info().
		Int("step", rec.Step).
		Int("x", rec.Position.X).
		Int("y", rec.Position.Y).
		Int("altitude", rec.Config.AltitudeLevel).
		Str("formation", rec.Config.Formation.String()).
		Bool("ecm", rec.Config.ECM).
		Str("tactics", rec.Tactics.String()).
		Bool("detected", rec.Detected).
		Bool("destroyed", rec.Destroyed).
		Float64("decisionMsec", rec.DecisionTimeMsec)
	if d := rec.Decision; d != nil {
		e = e.Dict("enforcer", zerolog.Dict().
			Float64("probability", d.Probability).
			Float64("target", d.Target).
			Float64("delta", d.Delta).
			Bool("passed", d.Passed).
			Bool("passThrough", d.PassThrough))
	}
	e.Msg("step")
}

// Finish writes the mission results
func (s *EventStream) Finish(results dartsim.Results, elapsed time.Duration) {
	s.log.Info().
		Str("outcome", Outcome(results)).
		Int("targetsDetected", results.TargetsDetected).
		Bool("destroyed", results.Destroyed).
		Int("whereDestroyedX", results.WhereDestroyed.X).
		Bool("missionSuccess", results.MissionSuccess).
		Float64("decisionTimeAvg", results.DecisionTimeAvg).
		Float64("decisionTimeVar", results.DecisionTimeVar).
		Int("steps", results.Steps).
		Dur("elapsed", elapsed).
		Msg("results")
}

// Close closes the underlying file, if any
func (s *EventStream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
