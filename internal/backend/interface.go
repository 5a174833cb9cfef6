package backend

import (
	"context"
	"time"

	"logdash/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the source instance and optional cleanup function
type BackendResult struct {
	Source  sheets.Source
	Cleanup CleanupFunc
}

// Factory creates sources based on configuration
type Factory interface {
	// CreateBackend creates a source instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Spreadsheet specific
	HeliumSheetID string
	FuelSheetID   string
	HeliumRange   string
	FuelRange     string

	// Remote specific
	SheetsBaseURL string
	SheetsJSONURL string
	FetchTimeout  time.Duration

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend    BackendType = "memory"
	SheetsBackend    BackendType = "sheets"
	CSVExportBackend BackendType = "csv-export"
	JSONBackend      BackendType = "json"
	SQLiteBackend    BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SheetsBackend, CSVExportBackend, JSONBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
