package records

import (
	"fmt"
	"strings"

	"logdash/internal/core"
)

// ParseHeliumRows parses the helium sheet as a values matrix, the shape the
// Sheets API returns. The first row is the header.
func ParseHeliumRows(values [][]any) []core.HeliumSheetRow {
	out := make([]core.HeliumSheetRow, 0, len(values))
	for _, cols := range dataRows(values) {
		out = append(out, heliumRow(cols))
	}
	return out
}

// ParseFuelRows parses the fuel sheet as a values matrix.
func ParseFuelRows(values [][]any) []core.FuelSheetRow {
	out := make([]core.FuelSheetRow, 0, len(values))
	for _, cols := range dataRows(values) {
		out = append(out, fuelRow(cols))
	}
	return out
}

func dataRows(values [][]any) [][]string {
	if len(values) < 2 {
		return nil
	}
	rows := make([][]string, 0, len(values)-1)
	for _, row := range values[1:] {
		cols := toStrings(row)
		if blank(cols) {
			continue
		}
		rows = append(rows, cols)
	}
	return rows
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func blank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
