package backend

import (
	"context"
	"fmt"

	applog "logdash/internal/log"
	gsheet "logdash/internal/sheets/google"
	"logdash/internal/sheets/memory"
	"logdash/internal/sheets/remote"
	"logdash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case CSVExportBackend:
		return f.createCSVExportBackend(config)
	case JSONBackend:
		return f.createJSONBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Source:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		HeliumSheetID: config.HeliumSheetID,
		FuelSheetID:   config.FuelSheetID,
		HeliumRange:   config.HeliumRange,
		FuelRange:     config.FuelRange,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"helium_sheet", config.HeliumSheetID,
		"fuel_sheet", config.FuelSheetID)

	return &BackendResult{Source: cli}, nil
}

func (f *DefaultFactory) createCSVExportBackend(config Config) (*BackendResult, error) {
	base := config.SheetsBaseURL
	if base == "" {
		base = remote.DefaultBaseURL
	}
	heliumURL := remote.ExportURL(base, config.HeliumSheetID, config.HeliumRange)
	fuelURL := remote.ExportURL(base, config.FuelSheetID, config.FuelRange)

	fetcher := remote.NewFetcher(nil, config.FetchTimeout, f.logger)

	f.logger.Info("Initialized CSV export backend",
		applog.FieldURL, heliumURL,
		"fuel_url", fuelURL)

	return &BackendResult{Source: remote.NewCSVExport(fetcher, heliumURL, fuelURL)}, nil
}

func (f *DefaultFactory) createJSONBackend(config Config) (*BackendResult, error) {
	fetcher := remote.NewFetcher(nil, config.FetchTimeout, f.logger)

	f.logger.Info("Initialized JSON backend", applog.FieldURL, config.SheetsJSONURL)

	return &BackendResult{Source: remote.NewJSON(fetcher, config.SheetsJSONURL)}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Source: store}, nil
}
