// Package sink writes processed rows to append-only, partitioned CSV files.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vcabral19/json-placeholder-elt/internal/domain"
	"github.com/vcabral19/json-placeholder-elt/internal/pipeline"
)

// CSVSink appends rows under a root directory. Rows for a file are written
// under a per-file lock, so batches may be processed concurrently within
// one process.
type CSVSink struct {
	root  string
	locks sync.Map // path -> *sync.Mutex
}

func NewCSVSink(root string) *CSVSink {
	return &CSVSink{root: root}
}

func (s *CSVSink) lock(path string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// WriteRows appends rows to the batch's file for spec.Kind. The header is
// written only when the file did not exist beforehand; an empty rows slice
// still creates the file with its header.
func (s *CSVSink) WriteRows(spec pipeline.KindSpec, partition string, ts int64, rows []domain.Projection) (string, error) {
	path := spec.Path(s.root, partition, ts)

	mu := s.lock(path)
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	exists := true
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		exists = false
	} else if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	w.UseCRLF = true
	if !exists {
		if err := w.Write(spec.Fields); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write header: %w", err)
		}
	}
	for _, row := range rows {
		values := row.Values()
		if len(values) != len(spec.Fields) {
			f.Close()
			return "", fmt.Errorf("%s row %s has %d cells, want %d", spec.Kind, row.Key(), len(values), len(spec.Fields))
		}
		if err := w.Write(values); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}
