// Package tracker finds raw batches that still lack a processed file.
package tracker

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vcabral19/json-placeholder-elt/internal/domain"
	"github.com/vcabral19/json-placeholder-elt/internal/logger"
	"github.com/vcabral19/json-placeholder-elt/internal/pipeline"
	"github.com/vcabral19/json-placeholder-elt/internal/rawstore"
)

// Outstanding is a raw batch with at least one missing processed file.
type Outstanding struct {
	Timestamp int64         `json:"timestamp"`
	Partition string        `json:"partition"`
	RawPath   string        `json:"raw_path"`
	Missing   []domain.Kind `json:"missing"`
}

// ListOutstanding walks rawDir for raw_data_<epoch>.json files and returns
// those for which any registered kind has no file under outputDir. Files
// with other names are skipped. A missing rawDir yields no batches.
func ListOutstanding(rawDir, outputDir string, registry *pipeline.Registry) ([]Outstanding, error) {
	var out []Outstanding
	kinds := registry.Kinds()

	err := filepath.WalkDir(rawDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == rawDir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".json" {
			return nil
		}

		ts, err := rawstore.ParseTimestamp(path)
		if err != nil {
			logger.Warn("Skipping file with unparsable name: %s", path)
			return nil
		}

		partition := domain.Partition(ts)
		var missing []domain.Kind
		for _, spec := range kinds {
			if _, err := os.Stat(spec.Path(outputDir, partition, ts)); err != nil {
				missing = append(missing, spec.Kind)
			}
		}
		if len(missing) > 0 {
			out = append(out, Outstanding{
				Timestamp: ts,
				Partition: partition,
				RawPath:   path,
				Missing:   missing,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
