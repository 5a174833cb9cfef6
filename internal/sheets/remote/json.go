package remote

import (
	"bytes"
	"context"
	"fmt"

	"logdash/internal/records"
	ports "logdash/internal/sheets"
)

// JSON reads both categories from one endpoint serving the JSON contract.
// A helium and a fuel read issued together share a single request.
type JSON struct {
	fetch *Fetcher
	url   string
}

var _ ports.Source = (*JSON)(nil)

func NewJSON(fetch *Fetcher, url string) *JSON {
	return &JSON{fetch: fetch, url: url}
}

func (j *JSON) payload(ctx context.Context) (records.Payload, error) {
	body, err := j.fetch.Get(ctx, j.url)
	if err != nil {
		return records.Payload{}, err
	}
	p, err := records.Decode(bytes.NewReader(body))
	if err != nil {
		return records.Payload{}, fmt.Errorf("%s: %w", j.url, err)
	}
	return p, nil
}

func (j *JSON) ReadHelium(ctx context.Context) (ports.HeliumData, error) {
	p, err := j.payload(ctx)
	if err != nil {
		return ports.HeliumData{}, fmt.Errorf("helium payload: %w", err)
	}
	return ports.HeliumData{Fills: p.Helium, ReportedTotals: p.HeliumFillTotals}, nil
}

func (j *JSON) ReadFuel(ctx context.Context) (ports.FuelData, error) {
	p, err := j.payload(ctx)
	if err != nil {
		return ports.FuelData{}, fmt.Errorf("fuel payload: %w", err)
	}
	return ports.FuelData{Propane: p.Fuel.Propane, Diesel: p.Fuel.Diesel, Totals: p.Fuel.PropaneTotals}, nil
}
