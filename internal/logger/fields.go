package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain via context.
const (
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"
	FieldComponent = "component"

	// FieldBatchTS is the epoch timestamp identifying a raw batch
	FieldBatchTS   = "batch_ts"
	FieldPartition = "partition"
	FieldKind      = "kind"
	FieldRawFile   = "raw_file"
)

// Metric fields, used with the Entry API for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
)
