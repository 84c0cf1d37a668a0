// Package pipeline turns archived raw batches into per-kind processed files.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vcabral19/json-placeholder-elt/internal/domain"
	"github.com/vcabral19/json-placeholder-elt/internal/logger"
	"github.com/vcabral19/json-placeholder-elt/internal/rawstore"
)

// ErrTimestampMismatch is returned when a raw file's name disagrees with the
// timestamp it was scheduled under.
var ErrTimestampMismatch = errors.New("raw batch timestamp mismatch")

// TransformFunc projects one raw record into at most one row per kind.
type TransformFunc func(record json.RawMessage, extractionISO string) (map[domain.Kind]domain.Projection, error)

// Sink appends rows for one kind of one batch and returns the file written.
type Sink interface {
	WriteRows(spec KindSpec, partition string, ts int64, rows []domain.Projection) (string, error)
}

// Recorder receives the engine's counters. *metrics.Collector implements it.
type Recorder interface {
	RecordTransformationError()
	RecordBatch(complete bool, seconds float64)
	RecordSinkWrite(kind string, rows int)
	RecordSinkFailure(kind string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransformationError() {}
func (nopRecorder) RecordBatch(bool, float64) {}
func (nopRecorder) RecordSinkWrite(string, int) {}
func (nopRecorder) RecordSinkFailure(string) {}

// EngineConfig wires an Engine. Transform defaults to domain.DefaultTransform.
type EngineConfig struct {
	Registry  *Registry
	Transform TransformFunc
	Sink      Sink
	Metrics   Recorder
}

// Engine processes one raw batch at a time. It is safe for concurrent use
// on different batches as long as the Sink is.
type Engine struct {
	registry  *Registry
	transform TransformFunc
	sink      Sink
	metrics   Recorder
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	e := &Engine{
		registry:  cfg.Registry,
		transform: cfg.Transform,
		sink:      cfg.Sink,
		metrics:   cfg.Metrics,
	}
	if e.transform == nil {
		e.transform = domain.DefaultTransform
	}
	if e.metrics == nil {
		e.metrics = nopRecorder{}
	}
	return e, nil
}

// BatchResult summarizes one ProcessBatch call.
type BatchResult struct {
	Timestamp int64
	Partition string
	Records   int
	// Rejected counts records whose transform failed.
	Rejected int
	Rows     map[domain.Kind]int
	Written  map[domain.Kind]string
	Failed   map[domain.Kind]error
}

// Complete reports whether every kind was written.
func (r *BatchResult) Complete() bool {
	return len(r.Failed) == 0
}

// ProcessBatch transforms every record of the batch at rawPath and writes
// one file per registered kind, including kinds with no rows. An error is
// returned only when the raw file cannot be read; per-record and per-kind
// failures are reported in the result.
func (e *Engine) ProcessBatch(ctx context.Context, rawPath string, ts int64) (*BatchResult, error) {
	start := time.Now()
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldBatchTS: ts,
		logger.FieldRawFile: rawPath,
	})

	batch, err := rawstore.Load(rawPath)
	if err == nil && batch.Timestamp != ts {
		err = fmt.Errorf("%w: file %s is %d, scheduled as %d", ErrTimestampMismatch, rawPath, batch.Timestamp, ts)
	}
	if err != nil {
		elapsed := time.Since(start)
		logger.With(logger.Fields{logger.FieldStatus: "failed"}).
			WithDuration(elapsed.Milliseconds()).
			Error(ctx, "Failed to load raw batch: %v", err)
		e.metrics.RecordBatch(false, elapsed.Seconds())
		return nil, err
	}

	partition := batch.Partition
	records := batch.Records
	ctx = logger.WithField(ctx, logger.FieldPartition, partition)
	log := logger.FromContext(ctx)

	result := &BatchResult{
		Timestamp: batch.Timestamp,
		Partition: partition,
		Records:   len(records),
		Rows:      make(map[domain.Kind]int),
		Written:   make(map[domain.Kind]string),
		Failed:    make(map[domain.Kind]error),
	}

	iso := domain.ExtractionISO(ts)
	rows := make(map[domain.Kind][]domain.Projection)
	seen := make(map[domain.Kind]map[string]struct{})

	for i, record := range records {
		projections, err := e.safeTransform(record, iso)
		if err != nil {
			result.Rejected++
			e.metrics.RecordTransformationError()
			log.WithError(err).WithFields(logger.Fields{
				"record_index": i,
				"record_id":    domain.RecordID(record),
			}).Warn("Skipping record")
			continue
		}

		for kind, p := range projections {
			spec, ok := e.registry.Lookup(kind)
			if !ok {
				log.WithField(logger.FieldKind, kind).Warn("Dropping projection of unregistered kind")
				continue
			}
			if spec.Dedupe {
				if seen[kind] == nil {
					seen[kind] = make(map[string]struct{})
				}
				if _, dup := seen[kind][p.Key()]; dup {
					continue
				}
				seen[kind][p.Key()] = struct{}{}
			}
			rows[kind] = append(rows[kind], p)
		}
	}

	for _, spec := range e.registry.Kinds() {
		kindRows := rows[spec.Kind]
		path, err := e.sink.WriteRows(spec, partition, ts, kindRows)
		if err != nil {
			result.Failed[spec.Kind] = err
			e.metrics.RecordSinkFailure(string(spec.Kind))
			log.WithError(err).WithField(logger.FieldKind, spec.Kind).Error("Failed to write processed file")
			continue
		}
		result.Rows[spec.Kind] = len(kindRows)
		result.Written[spec.Kind] = path
		e.metrics.RecordSinkWrite(string(spec.Kind), len(kindRows))
	}

	elapsed := time.Since(start)
	e.metrics.RecordBatch(result.Complete(), elapsed.Seconds())

	status := "success"
	if !result.Complete() {
		status = "partial"
	}
	logger.With(logger.Fields{
		logger.FieldStatus: status,
		"rejected":         result.Rejected,
	}).WithDuration(elapsed.Milliseconds()).WithCount(result.Records).Info(ctx, "Raw batch processed")

	return result, nil
}

// safeTransform turns a panicking transform into a per-record error.
func (e *Engine) safeTransform(record json.RawMessage, iso string) (out map[domain.Kind]domain.Projection, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	return e.transform(record, iso)
}
