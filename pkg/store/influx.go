package store

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/picogrid/dart-simulations/pkg/adaptation"
	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/logger"
)

// Measurement names
const (
	MeasurementRun  = "dart_run"
	MeasurementStep = "dart_step"
)

// InfluxConfig locates the InfluxDB server
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxSink writes run and step points to InfluxDB. Without a reachable
// server the points go to the backup writer as line protocol.
type InfluxSink struct {
	Client  influxdb2.Client
	Writer  influxdb2_api.WriteAPI
	Backup  io.Writer
	IsValid bool

	log logger.Logger
	mu  sync.Mutex
}

// NewInfluxSink connects to cfg.URL when set and falls back to backup
func NewInfluxSink(ctx context.Context, cfg InfluxConfig, backup io.Writer, log logger.Logger) (*InfluxSink, error) {
	if log == nil {
		log = logger.Discard()
	}
	s := &InfluxSink{Backup: backup, log: log}

	if cfg.URL != "" {
		s.Client = influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
			influxdb2.DefaultOptions().
				SetBatchSize(500).
				SetFlushInterval(1000))

		running, err := s.Client.Ping(ctx)
		if err == nil && running {
			s.IsValid = true
			s.Writer = s.Client.WriteAPI(cfg.Org, cfg.Bucket)
			go func(errorsCh <-chan error) {
				for writeErr := range errorsCh {
					log.Errorf("Error sending data to InfluxDB: %v", writeErr)
				}
			}(s.Writer.Errors())
			log.WithField("bucket", cfg.Bucket).Info("InfluxDB client initialized")
		} else {
			s.Client.Close()
			s.Client = nil
			log.Warn("InfluxDB not reachable, writing line protocol to backup")
		}
	}

	if !s.IsValid && s.Backup == nil {
		return nil, fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	return s, nil
}

// WritePoint writes a point to InfluxDB or the backup writer
func (s *InfluxSink) WritePoint(point *influxdb2_write.Point) error {
	if s.IsValid {
		s.Writer.WritePoint(point)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := io.WriteString(s.Backup, line); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup: %w", err)
	}
	return nil
}

// WriteRun writes the summary point of a stored run
func (s *InfluxSink) WriteRun(rec *RunRecord) error {
	point := influxdb2.NewPoint(MeasurementRun,
		map[string]string{
			"simulation": rec.Simulation,
			"manager":    rec.Manager,
			"run":        rec.ID.String(),
		},
		map[string]interface{}{
			"seed":               rec.Seed,
			"targetsDetected":    rec.TargetsDetected,
			"destroyed":          rec.Destroyed,
			"whereDestroyedX":    rec.WhereDestroyedX,
			"missionSuccess":     rec.MissionSuccess,
			"steps":              rec.Steps,
			"decisionTimeAvg":    rec.DecisionTimeAvg,
			"decisionTimeVar":    rec.DecisionTimeVar,
			"overrides":          rec.Overrides,
			"cumulativeSurvival": rec.CumulativeSurvival,
		},
		rec.CreatedAt)
	return s.WritePoint(point)
}

// StepObserver returns an observer writing one point per step of a run
func (s *InfluxSink) StepObserver(runID, simulation string) adaptation.Observer {
	return adaptation.ObserverFunc(func(rec adaptation.StepRecord) {
		fields := map[string]interface{}{
			"step":         rec.Step,
			"x":            rec.Position.X,
			"y":            rec.Position.Y,
			"altitude":     rec.Config.AltitudeLevel,
			"tight":        rec.Config.Formation == dartsim.Tight,
			"ecm":          rec.Config.ECM,
			"detected":     rec.Detected,
			"destroyed":    rec.Destroyed,
			"decisionMsec": rec.DecisionTimeMsec,
		}
		if d := rec.Decision; d != nil {
			fields["survival"] = d.Probability
			fields["passThrough"] = d.PassThrough
		}
		point := influxdb2.NewPoint(MeasurementStep,
			map[string]string{"run": runID, "simulation": simulation},
			fields,
			time.Now())
		if err := s.WritePoint(point); err != nil {
			s.log.Errorf("Failed to write step %d: %v", rec.Step, err)
		}
	})
}

// Close flushes pending points and closes the client
func (s *InfluxSink) Close() {
	if s.Writer != nil {
		s.Writer.Flush()
	}
	if s.Client != nil {
		s.Client.Close()
	}
}
