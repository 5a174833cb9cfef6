// Package export renders an assembled snapshot as a downloadable report.
package export

import (
	"strconv"

	"logdash/internal/core"
)

const (
	FileName     = "logistics-dashboard.csv"
	ContentType  = "text/csv"
	XLSXFileName = "logistics-dashboard.xlsx"
	XLSXType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	ReportTitle = "Logistics H2 Dashboard Export"
)

// Section titles, in export order.
const (
	HeliumSection     = "HELIUM TRACKER - YEAR TO DATE"
	CellTotalsSection = "HELIUM FILL TOTALS BY CELL"
	PropaneSection    = "PROPANE CANISTERS - YEAR TO DATE"
	DieselSection     = "DIESEL FUEL - YEAR TO DATE"
)

type section struct {
	title  string
	sheet  string
	header []string
	rows   func(core.Snapshot) [][]any
}

var sections = []section{
	{
		title:  HeliumSection,
		sheet:  "Helium Fills",
		header: []string{"Fill Date", "Cell #", "SCF"},
		rows: func(s core.Snapshot) [][]any {
			out := make([][]any, 0, len(s.Helium))
			for _, f := range s.Helium {
				out = append(out, []any{f.FillDate.String(), f.Cell, f.SCF})
			}
			return out
		},
	},
	{
		title:  CellTotalsSection,
		sheet:  "Cell Totals",
		header: []string{"Cell #", "Total SCF", "Fill Count"},
		rows: func(s core.Snapshot) [][]any {
			out := make([][]any, 0, len(s.CellTotals))
			for _, c := range s.CellTotals {
				out = append(out, []any{c.Cell, c.TotalSCF, c.FillCount})
			}
			return out
		},
	},
	{
		title:  PropaneSection,
		sheet:  "Propane",
		header: []string{"Machinery", "Date of Canister Replacement"},
		rows: func(s core.Snapshot) [][]any {
			out := make([][]any, 0, len(s.Propane))
			for _, p := range s.Propane {
				out = append(out, []any{p.Machinery, p.Date.String()})
			}
			return out
		},
	},
	{
		title:  DieselSection,
		sheet:  "Diesel",
		header: []string{"Machinery", "Date Fueled", "Gallons Pumped"},
		rows: func(s core.Snapshot) [][]any {
			out := make([][]any, 0, len(s.Diesel))
			for _, d := range s.Diesel {
				out = append(out, []any{d.Machinery, d.Date.String(), d.Gallons})
			}
			return out
		},
	},
}

// Titles lists the section titles in export order.
func Titles() []string {
	out := make([]string, len(sections))
	for i, sec := range sections {
		out[i] = sec.title
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}
