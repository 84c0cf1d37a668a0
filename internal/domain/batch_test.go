package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition(t *testing.T) {
	assert.Equal(t, "2009-02-13/23", Partition(1234567890))
	assert.Equal(t, "1970-01-01/00", Partition(0))
}

func TestExtractionISO(t *testing.T) {
	assert.Equal(t, "2009-02-13T23:31:30+00:00", ExtractionISO(1234567890))
	assert.Equal(t, "1970-01-01T00:00:00+00:00", ExtractionISO(0))
}

func TestNewRawBatch(t *testing.T) {
	batch := NewRawBatch(1234567890, nil)
	assert.Equal(t, "2009-02-13/23", batch.Partition)
	assert.NotNil(t, batch.Records)
	assert.Empty(t, batch.Records)
}
