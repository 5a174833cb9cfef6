package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"logdash/internal/core"
)

const summarySheet = "Summary"

// WriteXLSX writes the report as a workbook: a Summary sheet with the headline
// figures followed by one sheet per section.
func WriteXLSX(w io.Writer, s core.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F4E79"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := writeSummary(f, s, headerStyle); err != nil {
		return err
	}
	for _, sec := range sections {
		if _, err := f.NewSheet(sec.sheet); err != nil {
			return fmt.Errorf("new sheet %s: %w", sec.sheet, err)
		}
		rows := [][]any{toAny(sec.header)}
		rows = append(rows, sec.rows(s)...)
		if err := writeRows(f, sec.sheet, rows); err != nil {
			return err
		}
		if err := styleHeader(f, sec.sheet, len(sec.header), headerStyle); err != nil {
			return err
		}
		if err := f.SetColWidth(sec.sheet, "A", columnName(len(sec.header)), 22); err != nil {
			return fmt.Errorf("column width %s: %w", sec.sheet, err)
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, s core.Snapshot, headerStyle int) error {
	st := s.Stats
	rows := [][]any{
		{ReportTitle, ""},
		{"Generated", s.AssembledAt.UTC().Format(time.RFC3339)},
		{"Metric", "Value"},
		{"Total Helium (SCF)", st.HeliumTotalSCF},
		{"Helium Fills", st.HeliumFills},
		{"Propane Canisters", st.PropaneCanisters},
		{"Propane Gallons Pumped", st.PropaneGallonsPumped},
		{"Propane Replacements", st.PropaneReplacements},
		{"Total Diesel (gal)", st.DieselTotal},
		{"Diesel Entries", st.DieselEntries},
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A3", "B3", headerStyle); err != nil {
		return fmt.Errorf("summary style: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 28); err != nil {
		return fmt.Errorf("summary width: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, cols, style int) error {
	end, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", end, style)
}

func columnName(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return "A"
	}
	return name
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
