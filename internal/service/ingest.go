package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vcabral19/json-placeholder-elt/internal/domain"
	"github.com/vcabral19/json-placeholder-elt/internal/logger"
	"github.com/vcabral19/json-placeholder-elt/internal/metrics"
	"github.com/vcabral19/json-placeholder-elt/internal/rawstore"
	"github.com/vcabral19/json-placeholder-elt/internal/repository"
	"github.com/vcabral19/json-placeholder-elt/internal/source"
)

// IngestService runs the fetch → archive → persist cycle.
type IngestService struct {
	source   source.Source
	store    *rawstore.Store
	userRepo *repository.UserRepository
	runRepo  *repository.IngestRunRepository
	metrics  *metrics.Collector
	interval time.Duration
	now      func() time.Time
}

// IngestConfig holds configuration for the ingest service
type IngestConfig struct {
	Interval time.Duration
}

// NewIngestService creates a new ingest service. userRepo and runRepo may
// be nil, in which case batches are only archived.
func NewIngestService(
	src source.Source,
	store *rawstore.Store,
	userRepo *repository.UserRepository,
	runRepo *repository.IngestRunRepository,
	collector *metrics.Collector,
	cfg *IngestConfig,
) *IngestService {
	return &IngestService{
		source:   src,
		store:    store,
		userRepo: userRepo,
		runRepo:  runRepo,
		metrics:  collector,
		interval: cfg.Interval,
		now:      time.Now,
	}
}

// IngestStats holds statistics for one ingest cycle.
type IngestStats struct {
	RunID           string
	ExtractionTS    int64
	RawPath         string
	TotalRecords    int
	ValidRecords    int
	InvalidRecords  int
	InsertedRecords int
	StartTime       time.Time
	EndTime         time.Time
}

// Run calls RunOnce every interval until ctx is cancelled. Cycle errors
// are logged and retried on the next tick.
func (s *IngestService) Run(ctx context.Context) error {
	ctx = logger.SetComponent(ctx, "ingestor")
	logger.CtxInfo(ctx, "Starting continuous ingestion from %s, interval %s", s.source.GetSourceID(), s.interval)

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			logger.FromContext(ctx).WithError(err).Error("Ingest cycle failed")
		}

		select {
		case <-ctx.Done():
			logger.CtxInfo(ctx, "Ingestion loop stopped")
			return nil
		case <-time.After(s.interval):
		}
	}
}

// RunOnce fetches the source once, archives the payload as a raw batch and,
// when a repository is configured, stores its valid records. A fetch error
// produces no batch. Invalid records are skipped individually.
func (s *IngestService) RunOnce(ctx context.Context) (*IngestStats, error) {
	stats := &IngestStats{
		RunID:     uuid.New().String(),
		StartTime: time.Now(),
	}
	ctx = logger.WithField(ctx, logger.FieldRunID, stats.RunID)
	log := logger.FromContext(ctx)

	records, err := s.source.Fetch(ctx)
	if err != nil {
		s.metrics.RecordAPIRequest(false)
		return stats, fmt.Errorf("failed to fetch from %s: %w", s.source.GetSourceID(), err)
	}
	s.metrics.RecordAPIRequest(true)

	stats.ExtractionTS = s.now().Unix()
	stats.TotalRecords = len(records)

	stats.RawPath, err = s.store.Save(ctx, stats.ExtractionTS, records)
	if err != nil {
		return stats, fmt.Errorf("failed to archive raw batch: %w", err)
	}
	s.metrics.RecordDatalakeWrite()

	run := &domain.IngestRun{
		ID:           stats.RunID,
		ExtractionTS: stats.ExtractionTS,
		Status:       domain.RunStatusRunning,
		RawPath:      stats.RawPath,
		TotalRecords: stats.TotalRecords,
		StartedAt:    stats.StartTime,
	}
	if s.runRepo != nil {
		if err := s.runRepo.Create(ctx, run); err != nil {
			log.WithError(err).Warn("Failed to record ingest run")
		}
	}

	users := make([]*domain.User, 0, len(records))
	for _, record := range records {
		user, err := domain.ParseUser(record, stats.ExtractionTS)
		if err != nil {
			stats.InvalidRecords++
			s.metrics.RecordDBInsertFailure()
			log.WithError(err).WithField("record_id", domain.RecordID(record)).Warn("Validation error")
			continue
		}
		users = append(users, user)
	}
	stats.ValidRecords = len(users)

	var saveErr error
	if s.userRepo != nil {
		stats.InsertedRecords, saveErr = s.userRepo.SaveBatch(ctx, users)
		if saveErr != nil {
			s.metrics.RecordDBInsertFailure()
			log.WithError(saveErr).Error("Database commit failed")
		} else {
			s.metrics.RecordDBInserts(stats.InsertedRecords)
		}
	}

	stats.EndTime = time.Now()
	s.finishRun(ctx, run, stats, saveErr)

	logger.With(logger.Fields{
		logger.FieldBatchTS: stats.ExtractionTS,
		"valid":             stats.ValidRecords,
		"invalid":           stats.InvalidRecords,
		"inserted":          stats.InsertedRecords,
	}).WithCount(stats.TotalRecords).
		WithDuration(stats.EndTime.Sub(stats.StartTime).Milliseconds()).
		Info(ctx, "Ingest cycle completed")

	if saveErr != nil {
		return stats, fmt.Errorf("failed to store users: %w", saveErr)
	}
	return stats, nil
}

func (s *IngestService) finishRun(ctx context.Context, run *domain.IngestRun, stats *IngestStats, saveErr error) {
	if s.runRepo == nil {
		return
	}
	completed := stats.EndTime
	run.ValidRecords = stats.ValidRecords
	run.InvalidRecords = stats.InvalidRecords
	run.InsertedRecords = stats.InsertedRecords
	run.CompletedAt = &completed
	run.Status = domain.RunStatusCompleted
	if saveErr != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorLog = saveErr.Error()
	}
	if err := s.runRepo.Update(ctx, run); err != nil && !errors.Is(err, context.Canceled) {
		logger.FromContext(ctx).WithError(err).Warn("Failed to update ingest run")
	}
}
