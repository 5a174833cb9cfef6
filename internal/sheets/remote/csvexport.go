package remote

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"logdash/internal/records"
	ports "logdash/internal/sheets"
)

// DefaultBaseURL is where public spreadsheets serve their CSV export.
const DefaultBaseURL = "https://docs.google.com/spreadsheets/d/"

// ExportURL returns the CSV export URL for one range of a spreadsheet.
func ExportURL(base, spreadsheetID, rng string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	q := url.Values{}
	q.Set("format", "csv")
	if rng != "" {
		q.Set("range", rng)
	}
	return base + url.PathEscape(spreadsheetID) + "/export?" + q.Encode()
}

// CSVExport reads both categories from spreadsheet CSV exports.
type CSVExport struct {
	fetch     *Fetcher
	heliumURL string
	fuelURL   string
}

var _ ports.Source = (*CSVExport)(nil)

func NewCSVExport(fetch *Fetcher, heliumURL, fuelURL string) *CSVExport {
	return &CSVExport{fetch: fetch, heliumURL: heliumURL, fuelURL: fuelURL}
}

func (c *CSVExport) ReadHelium(ctx context.Context) (ports.HeliumData, error) {
	body, err := c.fetch.Get(ctx, c.heliumURL)
	if err != nil {
		return ports.HeliumData{}, fmt.Errorf("helium export: %w", err)
	}
	rows := records.ParseHeliumCSV(bytes.NewReader(body))
	return ports.HeliumData{Fills: records.HeliumFills(rows)}, nil
}

func (c *CSVExport) ReadFuel(ctx context.Context) (ports.FuelData, error) {
	body, err := c.fetch.Get(ctx, c.fuelURL)
	if err != nil {
		return ports.FuelData{}, fmt.Errorf("fuel export: %w", err)
	}
	propane, diesel := records.SplitFuel(records.ParseFuelCSV(bytes.NewReader(body)))
	return ports.FuelData{Propane: propane, Diesel: diesel}, nil
}
