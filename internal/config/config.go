package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Data backends selectable with DATA_BACKEND.
const (
	BackendMemory    = "memory"
	BackendSheets    = "sheets"
	BackendCSVExport = "csv-export"
	BackendJSON      = "json"
	BackendSQLite    = "sqlite"
)

// Default spreadsheet IDs of the helium and fuel logs.
const (
	DefaultHeliumSheetID = "1rLsFurA_11kYc2WXXfIwOOojLaNHiJtvh36V6IvdhEg"
	DefaultFuelSheetID   = "1O4tQHwdFtdTEsIOTThXHAgDopkYNv9AZcNNXtHXacD8"
)

type Config struct {
	// HTTP Server
	Port             string
	RefreshRateLimit int      // manual refreshes per minute per client
	TrustedProxies   []string // extra CIDRs whose X-Forwarded-For is honoured

	// Backend selection
	DataBackend string
	DataDir     string

	// Database
	SQLiteDBPath string

	// Spreadsheets
	HeliumSheetID string
	FuelSheetID   string
	HeliumRange   string
	FuelRange     string
	SheetsBaseURL string
	SheetsJSONURL string
	FetchTimeout  time.Duration

	// Refresh
	RefreshInterval time.Duration
	YearToDate      bool

	// Rendered artifact cache
	ArtifactCacheSize int
	ArtifactCacheTTL  time.Duration

	// AMQP (optional refresh requests)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:             getEnv("PORT", "8081"),
		RefreshRateLimit: getEnvInt("REFRESH_RATE_LIMIT", 6),
		TrustedProxies:   getEnvList("TRUSTED_PROXIES"),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),
		DataDir:     getEnv("DATA_DIR", "./data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/logbook.db"),

		HeliumSheetID: getEnv("HELIUM_SHEET_ID", DefaultHeliumSheetID),
		FuelSheetID:   getEnv("FUEL_SHEET_ID", DefaultFuelSheetID),
		HeliumRange:   getEnv("HELIUM_RANGE", "Sheet1!A:H"),
		FuelRange:     getEnv("FUEL_RANGE", "Sheet1!A:F"),
		SheetsBaseURL: getEnv("SHEETS_BASE_URL", "https://docs.google.com/spreadsheets/d/"),
		SheetsJSONURL: getEnv("SHEETS_JSON_URL", ""),
		FetchTimeout:  getEnvDuration("FETCH_TIMEOUT", 15*time.Second),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", time.Hour),
		YearToDate:      getEnvBool("YEAR_TO_DATE", true),

		ArtifactCacheSize: getEnvInt("ARTIFACT_CACHE_SIZE", 32),
		ArtifactCacheTTL:  getEnvDuration("ARTIFACT_CACHE_TTL", 2*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "logdash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "refresh_requests"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Backends lists the valid DATA_BACKEND values.
func Backends() []string {
	return []string{BackendMemory, BackendSheets, BackendCSVExport, BackendJSON, BackendSQLite}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	if !slices.Contains(Backends(), c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends()))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case BackendSheets, BackendCSVExport:
		if strings.TrimSpace(c.HeliumSheetID) == "" {
			errors = append(errors, fmt.Sprintf("HELIUM_SHEET_ID is required when using %s backend", c.DataBackend))
		}
		if strings.TrimSpace(c.FuelSheetID) == "" {
			errors = append(errors, fmt.Sprintf("FUEL_SHEET_ID is required when using %s backend", c.DataBackend))
		}
		if c.DataBackend == BackendCSVExport {
			if err := validateHTTPURL(c.SheetsBaseURL); err != nil {
				errors = append(errors, fmt.Sprintf("invalid SHEETS_BASE_URL: %v", err))
			}
		}
	case BackendJSON:
		if c.SheetsJSONURL == "" {
			errors = append(errors, "SHEETS_JSON_URL is required when using json backend")
		} else if err := validateHTTPURL(c.SheetsJSONURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid SHEETS_JSON_URL: %v", err))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.FetchTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 1 second", c.FetchTimeout))
	} else if c.FetchTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at most 5 minutes", c.FetchTimeout))
	}

	if c.RefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 minute", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	if c.RefreshRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid refresh rate limit %d: must be at least 1", c.RefreshRateLimit))
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy %q: must be a CIDR", cidr))
		}
	}
	if c.ArtifactCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid artifact cache size %d: must be at least 1", c.ArtifactCacheSize))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme '%s' must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in '%s'", raw)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
