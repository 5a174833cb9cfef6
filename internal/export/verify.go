package export

import (
	"bytes"
	"fmt"
	"math"

	"logdash/internal/core"
)

// Verify re-reads a CSV report and checks that its helium section carries
// the same fills as s, in order.
func Verify(report []byte, s core.Snapshot) error {
	secs, err := ReadSections(bytes.NewReader(report))
	if err != nil {
		return err
	}
	rows, ok := secs[HeliumSection]
	if !ok {
		return fmt.Errorf("%w: missing section %q", ErrMalformedReport, HeliumSection)
	}
	fills := HeliumFills(rows)
	if len(fills) != len(s.Helium) {
		return fmt.Errorf("%w: %d helium rows, snapshot has %d", ErrMalformedReport, len(fills), len(s.Helium))
	}
	for i, f := range fills {
		want := s.Helium[i]
		if f.FillDate.String() != want.FillDate.String() || f.Cell != want.Cell || math.Abs(f.SCF-want.SCF) > 1e-9 {
			return fmt.Errorf("%w: helium row %d is %v, want %v", ErrMalformedReport, i+1, f, want)
		}
	}
	return nil
}
