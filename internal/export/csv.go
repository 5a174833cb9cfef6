package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"logdash/internal/core"
)

// WriteCSV writes the sectioned CSV report for s. The output depends only on
// the snapshot, so the same snapshot always yields the same bytes.
func WriteCSV(w io.Writer, s core.Snapshot) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	blank := func() {
		cw.Flush()
		buf.WriteByte('\n')
	}

	if err := cw.Write([]string{ReportTitle}); err != nil {
		return err
	}
	if err := cw.Write([]string{"Generated: " + s.AssembledAt.UTC().Format(time.RFC3339)}); err != nil {
		return err
	}
	blank()

	for i, sec := range sections {
		if i > 0 {
			blank()
		}
		if err := cw.Write([]string{sec.title}); err != nil {
			return err
		}
		if err := cw.Write(sec.header); err != nil {
			return err
		}
		for _, row := range sec.rows(s) {
			record := make([]string, len(row))
			for j, v := range row {
				record[j] = formatValue(v)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// CSV returns the report as a byte slice.
func CSV(s core.Snapshot) []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = WriteCSV(&buf, s)
	return buf.Bytes()
}

var ErrMalformedReport = errors.New("malformed report")

// ReadSections parses a report written by WriteCSV back into its sections,
// keyed by title. Each value holds the data rows without the column header.
// Lines before the first section are ignored.
func ReadSections(r io.Reader) (map[string][][]string, error) {
	headers := make(map[string][]string, len(sections))
	for _, sec := range sections {
		headers[sec.title] = sec.header
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	out := make(map[string][][]string)
	var (
		current    string
		wantHeader bool
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read report: %w", err)
		}
		if len(rec) == 1 {
			if _, ok := headers[rec[0]]; ok {
				current = rec[0]
				wantHeader = true
				out[current] = [][]string{}
				continue
			}
		}
		if current == "" {
			continue
		}
		if wantHeader {
			wantHeader = false
			if strings.Join(rec, ",") != strings.Join(headers[current], ",") {
				return out, fmt.Errorf("%w: section %q has header %v", ErrMalformedReport, current, rec)
			}
			continue
		}
		out[current] = append(out[current], rec)
	}
	if wantHeader {
		return out, fmt.Errorf("%w: section %q has no header", ErrMalformedReport, current)
	}
	return out, nil
}

// HeliumFills reads the helium section rows back into fill records.
func HeliumFills(rows [][]string) []core.HeliumFill {
	out := make([]core.HeliumFill, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		out = append(out, core.HeliumFill{
			FillDate: core.ParseDate(row[0]),
			Cell:     row[1],
			SCF:      core.ParseQuantity(row[2]),
		})
	}
	return out
}
