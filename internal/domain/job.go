package domain

import "time"

// RunStatus represents the status of an ingest run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IngestRun records one fetch → archive → persist cycle of the ingestor.
type IngestRun struct {
	ID              string     `gorm:"type:text;primaryKey" json:"id"`
	ExtractionTS    int64      `gorm:"index" json:"extraction_ts"`
	Status          RunStatus  `gorm:"type:text;default:running" json:"status"`
	RawPath         string     `gorm:"type:text" json:"raw_path,omitempty"`
	TotalRecords    int        `gorm:"default:0" json:"total_records"`
	ValidRecords    int        `gorm:"default:0" json:"valid_records"`
	InvalidRecords  int        `gorm:"default:0" json:"invalid_records"`
	// InsertedRecords excludes valid records already stored for this extraction.
	InsertedRecords int        `gorm:"default:0" json:"inserted_records"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ErrorLog        string     `gorm:"type:text" json:"error_log,omitempty"`
}

// TableName returns the database table name for IngestRun.
func (IngestRun) TableName() string {
	return "ingest_runs"
}
