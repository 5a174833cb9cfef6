// Package records turns raw spreadsheet payloads into typed dashboard records.
//
// Two inbound shapes are understood: the delimited text exported by the
// spreadsheets (header row first) and the JSON contract served by the sheets
// endpoint. Parsing is tolerant throughout: bad numbers become zero, lines that
// cannot be tokenized are dropped, and stream errors end parsing with whatever
// was read so far.
package records

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"logdash/internal/core"
)

// Column order of the helium export.
const (
	heliumDate = iota
	heliumLocation
	heliumQuantity
	heliumCost
	heliumSupplier
	heliumStatus
	heliumNotes
)

// Column order of the fuel export.
const (
	fuelDate = iota
	fuelVehicle
	fuelType
	fuelQuantity
	fuelCost
	fuelMileage
)

// ParseHeliumCSV parses the helium export: date, location, quantity, cost,
// supplier, status, notes.
func ParseHeliumCSV(r io.Reader) []core.HeliumSheetRow {
	out := make([]core.HeliumSheetRow, 0)
	eachLine(r, func(cols []string) {
		out = append(out, heliumRow(cols))
	})
	return out
}

// ParseFuelCSV parses the fuel export: date, vehicle, fuelType, quantity,
// cost, mileage.
func ParseFuelCSV(r io.Reader) []core.FuelSheetRow {
	out := make([]core.FuelSheetRow, 0)
	eachLine(r, func(cols []string) {
		out = append(out, fuelRow(cols))
	})
	return out
}

func heliumRow(cols []string) core.HeliumSheetRow {
	return core.HeliumSheetRow{
		Date:     core.ParseDate(safeGet(cols, heliumDate)),
		Location: safeGet(cols, heliumLocation),
		Quantity: core.ParseQuantity(safeGet(cols, heliumQuantity)),
		Cost:     core.ParseQuantity(safeGet(cols, heliumCost)),
		Supplier: safeGet(cols, heliumSupplier),
		Status:   safeGet(cols, heliumStatus),
		Notes:    safeGet(cols, heliumNotes),
	}
}

func fuelRow(cols []string) core.FuelSheetRow {
	return core.FuelSheetRow{
		Date:     core.ParseDate(safeGet(cols, fuelDate)),
		Vehicle:  safeGet(cols, fuelVehicle),
		FuelType: safeGet(cols, fuelType),
		Quantity: core.ParseQuantity(safeGet(cols, fuelQuantity)),
		Cost:     core.ParseQuantity(safeGet(cols, fuelCost)),
		Mileage:  core.ParseQuantity(safeGet(cols, fuelMileage)),
	}
}

// eachLine calls fn with the trimmed fields of every data line. The first
// line is the header. Each line is tokenized on its own so a line the reader
// still rejects costs only itself. Stray quotes are kept as field text.
func eachLine(r io.Reader, fn func([]string)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	header := true
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if header {
			header = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols, err := splitLine(line)
		if err != nil {
			continue
		}
		fn(cols)
	}
}

func splitLine(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cols, err := cr.Read()
	if err != nil {
		return nil, err
	}
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols, nil
}

func safeGet(cols []string, idx int) string {
	if idx < 0 || idx >= len(cols) {
		return ""
	}
	return cols[idx]
}
