// Package rawstore archives fetched payloads as immutable, hour-partitioned
// JSON files and reads them back for the transform engine.
package rawstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/vcabral19/json-placeholder-elt/internal/domain"
	"github.com/vcabral19/json-placeholder-elt/internal/logger"
	"github.com/vcabral19/json-placeholder-elt/internal/storage"
)

// ErrBadFileName is returned for files that are not named raw_data_<epoch>.json.
var ErrBadFileName = errors.New("not a raw batch file name")

var fileNamePattern = regexp.MustCompile(`^raw_data_(\d+)\.json$`)

// FileName returns the base name of the batch file for ts.
func FileName(ts int64) string {
	return "raw_data_" + strconv.FormatInt(ts, 10) + ".json"
}

// BatchPath returns <root>/<YYYY-MM-DD>/<HH>/raw_data_<ts>.json.
func BatchPath(root string, ts int64) string {
	return filepath.Join(root, filepath.FromSlash(domain.Partition(ts)), FileName(ts))
}

// ParseTimestamp extracts the epoch from a raw batch file name or path.
func ParseTimestamp(name string) (int64, error) {
	m := fileNamePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, fmt.Errorf("%w: %s", ErrBadFileName, name)
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrBadFileName, name, err)
	}
	return ts, nil
}

// Store writes raw batches under a root directory and optionally mirrors
// them to object storage.
type Store struct {
	root   string
	mirror storage.ObjectStorage
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithMirror uploads every saved batch to objects under prefix. A failed
// upload is logged; the local file stays authoritative.
func WithMirror(mirror storage.ObjectStorage, prefix string) Option {
	return func(s *Store) {
		s.mirror = mirror
		s.prefix = prefix
	}
}

func New(root string, opts ...Option) *Store {
	s := &Store{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes records as a pretty-printed JSON array to BatchPath(root, ts).
// The file is written to a temporary name first and renamed into place, so
// a reader never observes a half-written batch.
func (s *Store) Save(ctx context.Context, ts int64, records []json.RawMessage) (string, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode raw batch: %w", err)
	}

	dest := BatchPath(s.root, ts)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create partition directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+FileName(ts)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write raw batch: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close raw batch: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move raw batch into place: %w", err)
	}

	logger.With(logger.Fields{
		logger.FieldRawFile: dest,
		logger.FieldSize:    len(data),
	}).WithCount(len(records)).Info(ctx, "Raw batch saved")

	if s.mirror != nil {
		s.mirrorBatch(ctx, s.ObjectKey(ts), data)
	}
	return dest, nil
}

// mirrorBatch uploads data under key unless the object is already there.
// Failures are logged; the local file stays authoritative.
func (s *Store) mirrorBatch(ctx context.Context, key string, data []byte) {
	log := logger.FromContext(ctx).WithField("key", key)

	exists, err := s.mirror.Exists(ctx, key)
	if err != nil {
		log.WithError(err).Warn("Failed to check mirrored raw batch, uploading anyway")
	}
	if exists {
		log.Debug("Raw batch already mirrored")
		return
	}
	if err := s.mirror.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		log.WithError(err).Warn("Failed to mirror raw batch")
	}
}

// ObjectKey returns the mirror key for ts: <prefix>/<YYYY-MM-DD>/<HH>/raw_data_<ts>.json.
func (s *Store) ObjectKey(ts int64) string {
	return path.Join(s.prefix, domain.Partition(ts), FileName(ts))
}

// readRecords reads a batch file and returns its top-level array elements.
func readRecords(p string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw batch: %w", err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse raw batch %s: %w", p, err)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

// Load reads a batch file, taking its timestamp from the file name.
func Load(p string) (*domain.RawBatch, error) {
	ts, err := ParseTimestamp(p)
	if err != nil {
		return nil, err
	}
	records, err := readRecords(p)
	if err != nil {
		return nil, err
	}
	return domain.NewRawBatch(ts, records), nil
}
