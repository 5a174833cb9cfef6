package core

import (
	"encoding/json"
	"strings"
	"time"
)

type (
	// Date is a calendar date as it appeared in the source sheet. The original
	// text is preserved for display and export; the parsed time is used for
	// month bucketing and year filtering.
	Date struct {
		time.Time
		raw string
	}

	HeliumFill struct {
		FillDate Date    `json:"fillDate"`
		Cell     string  `json:"cell"`
		SCF      float64 `json:"scf"`
	}

	HeliumCellTotal struct {
		Cell      string  `json:"cell"`
		TotalSCF  float64 `json:"totalScf"`
		FillCount int     `json:"fillCount"`
	}

	PropaneReplacement struct {
		Machinery string `json:"machinery"`
		Date      Date   `json:"date"`
	}

	DieselFill struct {
		Machinery string  `json:"machinery"`
		Date      Date    `json:"date"`
		Gallons   float64 `json:"gallons"`
	}

	// PropaneTotals are reported by the fuel source itself; they are not
	// derivable from the replacement records.
	PropaneTotals struct {
		Canisters     float64 `json:"canisters"`
		GallonsPumped float64 `json:"gallonsPumped"`
	}

	// HeliumSheetRow is one row of the helium spreadsheet export
	// (date, location, quantity, cost, supplier, status, notes).
	HeliumSheetRow struct {
		Date     Date
		Location string
		Quantity float64
		Cost     float64
		Supplier string
		Status   string
		Notes    string
	}

	// FuelSheetRow is one row of the fuel spreadsheet export
	// (date, vehicle, fuelType, quantity, cost, mileage).
	FuelSheetRow struct {
		Date     Date
		Vehicle  string
		FuelType string
		Quantity float64
		Cost     float64
		Mileage  float64
	}
)

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"2006/01/02",
	"01-02-2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate interprets s with the layouts spreadsheets commonly produce.
// It never fails: text that matches no layout yields a Date with a zero time
// whose Month is 0, and String still returns s.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	d := Date{raw: s}
	if s == "" {
		return d
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return d
		}
	}
	return d
}

// NewDate creates a Date from year, month, day with ISO source text.
func NewDate(year, month, day int) Date {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return Date{Time: t, raw: t.Format("2006-01-02")}
}

// Month returns the calendar month 1-12, or 0 when the date did not parse.
func (d Date) Month() int {
	if d.IsZero() {
		return 0
	}
	return int(d.Time.Month())
}

// Year returns the year, or 0 when the date did not parse.
func (d Date) Year() int {
	if d.IsZero() {
		return 0
	}
	return d.Time.Year()
}

// Valid reports whether the source text was recognized as a date.
func (d Date) Valid() bool {
	return !d.IsZero()
}

// String returns the date exactly as the source wrote it.
func (d Date) String() string {
	if d.raw == "" && !d.IsZero() {
		return d.Format("2006-01-02")
	}
	return d.raw
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Non-string dates degrade to an unparsed date instead of failing the payload.
		*d = ParseDate(strings.Trim(string(b), `"`))
		return nil
	}
	*d = ParseDate(s)
	return nil
}

// Fill maps a helium sheet row onto the canonical fill record.
func (r HeliumSheetRow) Fill() HeliumFill {
	return HeliumFill{FillDate: r.Date, Cell: r.Location, SCF: r.Quantity}
}

// IsPropane reports whether the row records a propane canister swap.
func (r FuelSheetRow) IsPropane() bool {
	return strings.Contains(strings.ToLower(r.FuelType), "propane")
}

// IsDiesel reports whether the row records a diesel fueling. Rows without a
// fuel type are treated as diesel since the fuel log is diesel by default.
func (r FuelSheetRow) IsDiesel() bool {
	ft := strings.ToLower(strings.TrimSpace(r.FuelType))
	return ft == "" || strings.Contains(ft, "diesel")
}
