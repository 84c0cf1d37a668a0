package staging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/vcabral19/json-placeholder-elt/internal/logger"
)

// Adapter replays records from a local JSON Lines file, one record per
// line. It lets the ingestor run against a captured payload instead of the
// live endpoint.
type Adapter struct {
	path string
}

// NewAdapter creates a new staging adapter reading path.
func NewAdapter(path string) *Adapter {
	return &Adapter{path: path}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return "staging:" + a.path
}

// Fetch reads every non-blank line of the file. Lines that are not valid
// JSON are skipped with a warning; the file is re-read on every call.
func (a *Adapter) Fetch(ctx context.Context) ([]json.RawMessage, error) {
	file, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staging file: %w", err)
	}
	defer file.Close()

	records := []json.RawMessage{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !json.Valid([]byte(line)) {
			logger.CtxWarn(ctx, "Skipping malformed staging line %d in %s", lineNo, a.path)
			continue
		}
		records = append(records, json.RawMessage(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading staging file: %w", err)
	}
	return records, nil
}
