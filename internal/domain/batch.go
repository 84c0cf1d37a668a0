package domain

import (
	"encoding/json"
	"time"
)

const (
	partitionLayout = "2006-01-02/15"
	isoLayout       = "2006-01-02T15:04:05-07:00"
)

// RawBatch is one archived payload from a single extraction.
type RawBatch struct {
	Timestamp int64
	Partition string
	Records   []json.RawMessage
}

// NewRawBatch builds a batch, deriving its partition from ts.
func NewRawBatch(ts int64, records []json.RawMessage) *RawBatch {
	if records == nil {
		records = []json.RawMessage{}
	}
	return &RawBatch{
		Timestamp: ts,
		Partition: Partition(ts),
		Records:   records,
	}
}

// Partition returns the UTC "YYYY-MM-DD/HH" directory segment for ts.
func Partition(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(partitionLayout)
}

// ExtractionISO formats ts as ISO-8601 UTC with an explicit offset,
// e.g. 2009-02-13T23:31:30+00:00.
func ExtractionISO(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(isoLayout)
}
