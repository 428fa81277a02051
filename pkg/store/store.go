// Package store persists mission results: a relational run store through gorm
// and a time-series sink for InfluxDB.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/picogrid/dart-simulations/pkg/dartsim"
	"github.com/picogrid/dart-simulations/pkg/logger"
)

// ErrNotFound is returned when no run matches
var ErrNotFound = errors.New("run not found")

// memoryDSN names a fresh in-memory sqlite database. The shared cache keeps
// every pooled connection of one store on the same database.
func memoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

// RunRecord is one stored mission
type RunRecord struct {
	ID                 uuid.UUID      `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt          time.Time      `json:"createdAt"`
	BatchID            string         `gorm:"index" json:"batchId,omitempty"`
	Simulation         string         `gorm:"index" json:"simulation"`
	Manager            string         `json:"manager"`
	Seed               int64          `gorm:"index" json:"seed"`
	TargetsDetected    int            `json:"targetsDetected"`
	Destroyed          bool           `json:"destroyed"`
	WhereDestroyedX    int            `json:"whereDestroyedX"`
	WhereDestroyedY    int            `json:"whereDestroyedY"`
	MissionSuccess     bool           `json:"missionSuccess"`
	Steps              int            `json:"steps"`
	DecisionTimeAvg    float64        `json:"decisionTimeAvg"`
	DecisionTimeVar    float64        `json:"decisionTimeVar"`
	Overrides          int            `json:"overrides"`
	CumulativeSurvival float64        `json:"cumulativeSurvival"`
	Params             datatypes.JSON `json:"params"`
}

// NewRunRecord builds the record of a finished mission
func NewRunRecord(simulation, manager string, params dartsim.SimulationParams, results dartsim.Results) (*RunRecord, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("error marshaling parameters: %w", err)
	}
	return &RunRecord{
		ID:                 uuid.New(),
		Simulation:         simulation,
		Manager:            manager,
		Seed:               params.Seed,
		TargetsDetected:    results.TargetsDetected,
		Destroyed:          results.Destroyed,
		WhereDestroyedX:    results.WhereDestroyed.X,
		WhereDestroyedY:    results.WhereDestroyed.Y,
		MissionSuccess:     results.MissionSuccess,
		Steps:              results.Steps,
		DecisionTimeAvg:    results.DecisionTimeAvg,
		DecisionTimeVar:    results.DecisionTimeVar,
		CumulativeSurvival: 1,
		Params:             datatypes.JSON(data),
	}, nil
}

// Parameters decodes the stored simulation parameters
func (r RunRecord) Parameters() (dartsim.SimulationParams, error) {
	var p dartsim.SimulationParams
	if err := json.Unmarshal(r.Params, &p); err != nil {
		return p, fmt.Errorf("error decoding parameters of run %s: %w", r.ID, err)
	}
	return p, nil
}

// Results restates the record as simulator results
func (r RunRecord) Results() dartsim.Results {
	return dartsim.Results{
		Destroyed:       r.Destroyed,
		WhereDestroyed:  dartsim.Coordinate{X: r.WhereDestroyedX, Y: r.WhereDestroyedY},
		TargetsDetected: r.TargetsDetected,
		MissionSuccess:  r.MissionSuccess,
		DecisionTimeAvg: r.DecisionTimeAvg,
		DecisionTimeVar: r.DecisionTimeVar,
		Steps:           r.Steps,
	}
}

// Filter narrows List and Aggregate
type Filter struct {
	Simulation string
	BatchID    string
	Limit      int
}

// Aggregate summarizes several runs
type Aggregate struct {
	Runs             int     `json:"runs"`
	Successes        int     `json:"successes"`
	Destroyed        int     `json:"destroyed"`
	MeanTargets      float64 `json:"meanTargets"`
	MeanDecisionTime float64 `json:"meanDecisionTime"`
	MeanOverrides    float64 `json:"meanOverrides"`
}

// SuccessRate is the fraction of successful runs
func (a Aggregate) SuccessRate() float64 {
	if a.Runs == 0 {
		return 0
	}
	return float64(a.Successes) / float64(a.Runs)
}

// SurvivalRate is the fraction of runs that were not destroyed
func (a Aggregate) SurvivalRate() float64 {
	if a.Runs == 0 {
		return 0
	}
	return float64(a.Runs-a.Destroyed) / float64(a.Runs)
}

// Store is the relational run store
type Store struct {
	DB  *gorm.DB
	log logger.Logger
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// Open connects to dsn and migrates the schema. Postgres DSNs start with
// postgres:// or postgresql:// or contain host=; anything else is a sqlite
// path, and an empty dsn is an in-memory database.
func Open(dsn string, opts ...Option) (*Store, error) {
	s := &Store{log: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}

	cfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch {
	case isPostgres(dsn):
		s.log.Debug("Connecting to Postgres results store")
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), cfg)
	case dsn == "":
		s.log.Debug("Using in-memory SQLite results store")
		db, err = gorm.Open(sqlite.Open(memoryDSN()), cfg)
	default:
		s.log.WithField("path", dsn).Debug("Using SQLite results store")
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open results store: %w", err)
	}

	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate results store: %w", err)
	}

	s.DB = db
	return s, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// Save inserts a run, assigning an ID when it has none
func (s *Store) Save(ctx context.Context, rec *RunRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if err := s.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", rec.ID, err)
	}
	s.log.WithField("run", rec.ID.String()).Debug("Run saved")
	return nil
}

// Get returns the run with the given ID. A unique ID prefix is accepted.
func (s *Store) Get(ctx context.Context, id string) (RunRecord, error) {
	var rec RunRecord
	if parsed, err := uuid.Parse(id); err == nil {
		err := s.DB.WithContext(ctx).First(&rec, "id = ?", parsed.String()).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rec, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return rec, err
	}

	var matches []RunRecord
	if err := s.DB.WithContext(ctx).Where("id LIKE ?", id+"%").Limit(2).Find(&matches).Error; err != nil {
		return rec, err
	}
	switch len(matches) {
	case 0:
		return rec, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	}
	return rec, fmt.Errorf("run prefix %s is ambiguous", id)
}

// List returns runs newest first
func (s *Store) List(ctx context.Context, f Filter) ([]RunRecord, error) {
	var recs []RunRecord
	q := s.filtered(ctx, f).Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return recs, nil
}

// Aggregate summarizes the runs matching f; Limit is ignored
func (s *Store) Aggregate(ctx context.Context, f Filter) (Aggregate, error) {
	var row struct {
		Runs             int
		Successes        int
		Destroyed        int
		MeanTargets      float64
		MeanDecisionTime float64
		MeanOverrides    float64
	}
	f.Limit = 0
	err := s.filtered(ctx, f).
		Select(`COUNT(*) AS runs,
			COALESCE(SUM(CASE WHEN mission_success THEN 1 ELSE 0 END), 0) AS successes,
			COALESCE(SUM(CASE WHEN destroyed THEN 1 ELSE 0 END), 0) AS destroyed,
			COALESCE(AVG(targets_detected), 0) AS mean_targets,
			COALESCE(AVG(decision_time_avg), 0) AS mean_decision_time,
			COALESCE(AVG(overrides), 0) AS mean_overrides`).
		Scan(&row).Error
	if err != nil {
		return Aggregate{}, fmt.Errorf("failed to aggregate runs: %w", err)
	}
	return Aggregate(row), nil
}

// Delete removes a run
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Delete(&RunRecord{}, "id = ?", id.String())
	if res.Error != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) filtered(ctx context.Context, f Filter) *gorm.DB {
	q := s.DB.WithContext(ctx).Model(&RunRecord{})
	if f.Simulation != "" {
		q = q.Where("simulation = ?", f.Simulation)
	}
	if f.BatchID != "" {
		q = q.Where("batch_id = ?", f.BatchID)
	}
	return q
}
