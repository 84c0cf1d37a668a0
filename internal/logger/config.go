package logger

import (
	"io"
	"os"
	"strconv"
)

// EnvConfig holds extended logger configuration loaded from environment variables.
type EnvConfig struct {
	Level       string    // Log level: debug, info, warn, error
	Format      string    // Output format: json, text
	Output      io.Writer // Output destination (highest priority)
	ServiceName string    // Service name for log tagging
	Environment string    // Environment: local, dev, prod

	// File output configuration
	LogFile     string // Log file path; empty disables file output
	LogFileOnly bool   // Output only to file (not stdout)

	// Log rotation configuration
	MaxSize    int  // Max file size in MB before rotation
	MaxBackups int  // Number of backup files to keep
	MaxAge     int  // Max days to keep backup files
	Compress   bool // Compress rotated files
}

// LoadFromEnv loads configuration from environment variables. Values that
// fail to parse fall back to the defaults below.
func LoadFromEnv() *EnvConfig {
	return &EnvConfig{
		Level:       envOr("LOG_LEVEL", "info", parseString),
		Format:      envOr("LOG_FORMAT", "json", parseString),
		ServiceName: envOr("SERVICE_NAME", "json-placeholder-elt", parseString),
		Environment: envOr("APP_ENV", "local", parseString),

		LogFile:     envOr("LOG_FILE", "logs/etl.log", parseString),
		LogFileOnly: envOr("LOG_FILE_ONLY", false, strconv.ParseBool),

		MaxSize:    envOr("LOG_MAX_SIZE", 100, strconv.Atoi),
		MaxBackups: envOr("LOG_MAX_BACKUPS", 7, strconv.Atoi),
		MaxAge:     envOr("LOG_MAX_AGE", 30, strconv.Atoi),
		Compress:   envOr("LOG_COMPRESS", true, strconv.ParseBool),
	}
}

// envOr reads key and parses it. An unset variable yields def; for
// non-string values an empty one does too.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	v, err := parse(val)
	if err != nil {
		return def
	}
	return v
}

func parseString(s string) (string, error) { return s, nil }
