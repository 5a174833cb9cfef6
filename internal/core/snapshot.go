package core

import (
	"errors"
	"time"
)

var (
	ErrNoSnapshot        = errors.New("no snapshot assembled yet")
	ErrRefreshSuperseded = errors.New("refresh superseded by a newer request")
)

// Snapshot is one fully assembled dashboard: the raw records of a refresh
// cycle and every view derived from them. A Snapshot is never modified after
// Assemble returns.
type Snapshot struct {
	AssembledAt time.Time `json:"assembledAt"`

	Helium             []HeliumFill         `json:"helium"`
	ReportedCellTotals []HeliumCellTotal    `json:"heliumFillTotals"`
	Propane            []PropaneReplacement `json:"propane"`
	Diesel             []DieselFill         `json:"diesel"`
	PropaneTotals      PropaneTotals        `json:"propaneTotals"`

	CellTotals         []HeliumCellTotal `json:"cellTotals"`
	HeliumByCell       []RankedTotal     `json:"heliumByCell"`
	PropaneByMachinery []RankedTotal     `json:"propaneByMachinery"`
	DieselByMachinery  []RankedTotal     `json:"dieselByMachinery"`
	HeliumMonthly      []MonthlyPoint    `json:"heliumMonthly"`
	DieselMonthly      []MonthlyPoint    `json:"dieselMonthly"`
	Stats              Stats             `json:"stats"`
}

// Assemble builds a Snapshot from one cycle's records. The input slices are
// copied, never retained or modified.
func Assemble(in Inputs, at time.Time) Snapshot {
	s := Snapshot{
		AssembledAt:        at,
		Helium:             clone(in.Helium),
		ReportedCellTotals: clone(in.ReportedCellTotals),
		Propane:            clone(in.Propane),
		Diesel:             clone(in.Diesel),
		PropaneTotals:      in.PropaneTotals,
	}

	s.CellTotals = CellTotals(s.Helium)
	s.HeliumByCell = GroupAndSum(s.Helium,
		func(f HeliumFill) string { return f.Cell },
		func(f HeliumFill) float64 { return f.SCF })
	s.PropaneByMachinery = GroupAndSum(s.Propane,
		func(p PropaneReplacement) string { return p.Machinery },
		Presence[PropaneReplacement])
	s.DieselByMachinery = GroupAndSum(s.Diesel,
		func(d DieselFill) string { return d.Machinery },
		func(d DieselFill) float64 { return d.Gallons })
	s.HeliumMonthly = MonthlyBucket(s.Helium,
		func(f HeliumFill) Date { return f.FillDate },
		func(f HeliumFill) float64 { return f.SCF })
	s.DieselMonthly = MonthlyBucket(s.Diesel,
		func(d DieselFill) Date { return d.Date },
		func(d DieselFill) float64 { return d.Gallons })
	s.Stats = SummaryStats(Inputs{
		Helium:        s.Helium,
		Propane:       s.Propane,
		Diesel:        s.Diesel,
		PropaneTotals: s.PropaneTotals,
	})
	return s
}

// Inputs returns the raw collections the snapshot was assembled from.
func (s Snapshot) Inputs() Inputs {
	return Inputs{
		Helium:             s.Helium,
		ReportedCellTotals: s.ReportedCellTotals,
		Propane:            s.Propane,
		Diesel:             s.Diesel,
		PropaneTotals:      s.PropaneTotals,
	}
}

// Top returns at most n leading entries of a ranked list.
func Top(totals []RankedTotal, n int) []RankedTotal {
	if n < 0 || len(totals) <= n {
		return totals
	}
	return totals[:n]
}

// Recent returns the last n items newest first, for the recent-records tables.
func Recent[T any](items []T, n int) []T {
	if n > len(items) || n < 0 {
		n = len(items)
	}
	out := make([]T, 0, n)
	for i := len(items) - 1; i >= len(items)-n; i-- {
		out = append(out, items[i])
	}
	return out
}

func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
