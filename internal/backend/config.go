package backend

import (
	"fmt"
	"strings"

	"logdash/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		HeliumSheetID: appConfig.HeliumSheetID,
		FuelSheetID:   appConfig.FuelSheetID,
		HeliumRange:   appConfig.HeliumRange,
		FuelRange:     appConfig.FuelRange,

		SheetsBaseURL: appConfig.SheetsBaseURL,
		SheetsJSONURL: appConfig.SheetsJSONURL,
		FetchTimeout:  appConfig.FetchTimeout,

		DataDirectory: appConfig.DataDir,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend, CSVExportBackend:
		if strings.TrimSpace(c.HeliumSheetID) == "" || strings.TrimSpace(c.FuelSheetID) == "" {
			return fmt.Errorf("helium and fuel spreadsheet IDs are required for %s backend", c.Type)
		}
	case JSONBackend:
		if c.SheetsJSONURL == "" {
			return fmt.Errorf("JSON endpoint URL is required for json backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data" when empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SheetsBackend, CSVExportBackend, JSONBackend, SQLiteBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
