// Package scheduler repeatedly materializes outstanding raw batches.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vcabral19/json-placeholder-elt/internal/logger"
	"github.com/vcabral19/json-placeholder-elt/internal/pipeline"
	"github.com/vcabral19/json-placeholder-elt/internal/tracker"
)

// Processor materializes one raw batch. *pipeline.Engine implements it.
type Processor interface {
	ProcessBatch(ctx context.Context, rawPath string, ts int64) (*pipeline.BatchResult, error)
}

// Gauge receives the outstanding count after each scan.
type Gauge interface {
	SetOutstanding(n int)
}

type Config struct {
	RawDir       string
	ProcessedDir string
	Registry     *pipeline.Registry
	Interval     time.Duration
	// Workers above 1 processes distinct batches in parallel.
	Workers int
}

type Scheduler struct {
	cfg       Config
	processor Processor
	gauge     Gauge
}

func New(cfg Config, processor Processor, gauge Gauge) (*Scheduler, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Scheduler{cfg: cfg, processor: processor, gauge: gauge}, nil
}

// TickStats holds statistics for one scan-and-process pass.
type TickStats struct {
	Outstanding int64
	Processed   int64
	Incomplete  int64
	Failed      int64
	StartTime   time.Time
	EndTime     time.Time
}

// Run calls RunOnce, then sleeps for the interval, until ctx is cancelled.
// The sleep does not shrink when a tick runs long.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = logger.SetComponent(ctx, "transformer")
	logger.CtxInfo(ctx, "Starting continuous transformation, interval %s", s.cfg.Interval)

	for {
		s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			logger.CtxInfo(ctx, "Transformation loop stopped")
			return nil
		case <-time.After(s.cfg.Interval):
		}
	}
}

// RunOnce scans for outstanding batches and processes each of them once.
// A cancelled ctx stops it from starting further batches.
func (s *Scheduler) RunOnce(ctx context.Context) *TickStats {
	stats := &TickStats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	pending, err := tracker.ListOutstanding(s.cfg.RawDir, s.cfg.ProcessedDir, s.cfg.Registry)
	if err != nil {
		logger.CtxError(ctx, "Failed to list outstanding batches: %v", err)
		return stats
	}
	stats.Outstanding = int64(len(pending))
	if s.gauge != nil {
		s.gauge.SetOutstanding(len(pending))
	}
	if len(pending) == 0 {
		logger.CtxDebug(ctx, "No outstanding raw batches")
		return stats
	}
	logger.CtxInfo(ctx, "Found %d outstanding raw batch(es)", len(pending))

	batches := make(chan tracker.Outstanding, s.cfg.Workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID, batches, stats)
		}(i)
	}

feed:
	for _, b := range pending {
		select {
		case <-ctx.Done():
			break feed
		case batches <- b:
		}
	}
	close(batches)
	wg.Wait()

	logger.With(logger.Fields{
		"outstanding": stats.Outstanding,
		"incomplete":  atomic.LoadInt64(&stats.Incomplete),
		"failed":      atomic.LoadInt64(&stats.Failed),
	}).WithCount(int(atomic.LoadInt64(&stats.Processed))).
		WithDuration(time.Since(stats.StartTime).Milliseconds()).
		Info(ctx, "Transformation pass finished")
	return stats
}

func (s *Scheduler) worker(ctx context.Context, workerID int, batches <-chan tracker.Outstanding, stats *TickStats) {
	for b := range batches {
		if ctx.Err() != nil {
			continue
		}
		res, err := s.processor.ProcessBatch(ctx, b.RawPath, b.Timestamp)
		if err != nil {
			atomic.AddInt64(&stats.Failed, 1)
			logger.With(logger.Fields{
				"worker":            workerID,
				logger.FieldRawFile: b.RawPath,
			}).Warn(ctx, "Batch left outstanding: %v", err)
			continue
		}
		atomic.AddInt64(&stats.Processed, 1)
		if !res.Complete() {
			atomic.AddInt64(&stats.Incomplete, 1)
		}
	}
}
