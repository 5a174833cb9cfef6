package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"logdash/internal/records"
	ports "logdash/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultHeliumRange = "Sheet1!A:H"
	DefaultFuelRange   = "Sheet1!A:F"
)

type Client struct {
	svc         *gsheet.Service
	heliumID    string
	fuelID      string
	heliumRange string
	fuelRange   string
}

// Ensure interface conformance
var _ ports.Source = (*Client)(nil)

type Options struct {
	HeliumSheetID string
	FuelSheetID   string
	HeliumRange   string
	FuelRange     string
}

// New creates a read-only Sheets client authenticated with service account
// credentials from the environment.
func New(ctx context.Context, opts Options) (*Client, error) {
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts)
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.HeliumSheetID) == "" || strings.TrimSpace(opts.FuelSheetID) == "" {
		return nil, errors.New("missing HELIUM_SHEET_ID or FUEL_SHEET_ID")
	}
	c := &Client{
		svc:         svc,
		heliumID:    strings.TrimSpace(opts.HeliumSheetID),
		fuelID:      strings.TrimSpace(opts.FuelSheetID),
		heliumRange: opts.HeliumRange,
		fuelRange:   opts.FuelRange,
	}
	if c.heliumRange == "" {
		c.heliumRange = DefaultHeliumRange
	}
	if c.fuelRange == "" {
		c.fuelRange = DefaultFuelRange
	}
	return c, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadHelium reads the helium log. The sheet carries no totals of its own.
func (c *Client) ReadHelium(ctx context.Context) (ports.HeliumData, error) {
	values, err := c.read(ctx, c.heliumID, c.heliumRange)
	if err != nil {
		return ports.HeliumData{}, err
	}
	rows := records.ParseHeliumRows(values)
	return ports.HeliumData{Fills: records.HeliumFills(rows)}, nil
}

// ReadFuel reads the fuel log and splits it into propane swaps and diesel fills.
func (c *Client) ReadFuel(ctx context.Context) (ports.FuelData, error) {
	values, err := c.read(ctx, c.fuelID, c.fuelRange)
	if err != nil {
		return ports.FuelData{}, err
	}
	propane, diesel := records.SplitFuel(records.ParseFuelRows(values))
	return ports.FuelData{Propane: propane, Diesel: diesel}, nil
}

func (c *Client) read(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}
