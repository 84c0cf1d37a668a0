package source

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnexpectedStatus is returned when the endpoint answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Source defines the interface for record collections the ingestor pulls.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	GetSourceID() string

	// Fetch returns the current collection, one element per record.
	// An error means nothing was fetched; an empty slice is a valid,
	// empty collection.
	Fetch(ctx context.Context) ([]json.RawMessage, error)
}
