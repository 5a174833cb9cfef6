package core

import (
	"math"
	"sort"
	"time"
)

type (
	// RankedTotal is one group of a grouped sum or count.
	RankedTotal struct {
		Label string  `json:"label"`
		Value float64 `json:"value"`
	}

	// MonthlyPoint is one month of a calendar-year series. Period is the
	// amount recorded in that month and Cumulative the running total from
	// January through that month, both rounded to whole units.
	MonthlyPoint struct {
		Month      time.Month `json:"month"`
		Label      string     `json:"label"`
		Period     float64    `json:"period"`
		Cumulative float64    `json:"cumulative"`
	}

	// Stats holds the scalar figures shown on the summary cards.
	Stats struct {
		HeliumTotalSCF       float64 `json:"heliumTotalScf"`
		HeliumFills          int     `json:"heliumFills"`
		PropaneCanisters     float64 `json:"propaneCanisters"`
		PropaneGallonsPumped float64 `json:"propaneGallonsPumped"`
		PropaneReplacements  int     `json:"propaneReplacements"`
		DieselTotal          float64 `json:"dieselTotal"`
		DieselEntries        int     `json:"dieselEntries"`
	}

	// Inputs are the record collections of one refresh cycle.
	Inputs struct {
		Helium             []HeliumFill
		ReportedCellTotals []HeliumCellTotal
		Propane            []PropaneReplacement
		Diesel             []DieselFill
		PropaneTotals      PropaneTotals
	}
)

// Presence is the counting measure: every record weighs one.
func Presence[T any](T) float64 { return 1 }

// GroupAndSum groups items by key and sums measure per group. The result is
// sorted by value, highest first; groups with equal values keep the order in
// which they were first seen.
func GroupAndSum[T any](items []T, key func(T) string, measure func(T) float64) []RankedTotal {
	if len(items) == 0 {
		return []RankedTotal{}
	}
	index := make(map[string]int)
	out := make([]RankedTotal, 0)
	for _, it := range items {
		k := key(it)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, RankedTotal{Label: k})
		}
		out[i].Value += measure(it)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Value > out[b].Value })
	return out
}

// MonthlyBucket spreads items over the twelve calendar months by date and
// returns exactly twelve points, January first. Items whose date has no
// calendar month are left out of the series.
func MonthlyBucket[T any](items []T, date func(T) Date, measure func(T) float64) []MonthlyPoint {
	var buckets [12]float64
	for _, it := range items {
		m := date(it).Month()
		if m < 1 || m > 12 {
			continue
		}
		buckets[m-1] += measure(it)
	}

	out := make([]MonthlyPoint, 12)
	var cumulative float64
	for i, v := range buckets {
		// Round per month and sum the rounded values, so December's
		// cumulative equals the sum of the displayed periods. Rounding the
		// raw running sum instead could drift from that sum by one.
		period := math.Round(v)
		cumulative += period
		month := time.Month(i + 1)
		out[i] = MonthlyPoint{
			Month:      month,
			Label:      month.String()[:3],
			Period:     period,
			Cumulative: cumulative,
		}
	}
	return out
}

// CellTotals sums scf and counts fills per cell, in the order cells first
// appear among the fills.
func CellTotals(fills []HeliumFill) []HeliumCellTotal {
	index := make(map[string]int)
	out := make([]HeliumCellTotal, 0)
	for _, f := range fills {
		i, ok := index[f.Cell]
		if !ok {
			i = len(out)
			index[f.Cell] = i
			out = append(out, HeliumCellTotal{Cell: f.Cell})
		}
		out[i].TotalSCF += f.SCF
		out[i].FillCount++
	}
	return out
}

// SummaryStats computes the summary card figures. Propane canisters and
// gallons pumped come from the source's own totals.
func SummaryStats(in Inputs) Stats {
	s := Stats{
		HeliumFills:          len(in.Helium),
		PropaneCanisters:     in.PropaneTotals.Canisters,
		PropaneGallonsPumped: in.PropaneTotals.GallonsPumped,
		PropaneReplacements:  len(in.Propane),
		DieselEntries:        len(in.Diesel),
	}
	for _, f := range in.Helium {
		s.HeliumTotalSCF += f.SCF
	}
	for _, d := range in.Diesel {
		s.DieselTotal += d.Gallons
	}
	return s
}

// FilterYear keeps the records dated in year. Records whose date could not be
// parsed are kept since they cannot be placed in any year. Source-reported
// totals are passed through unchanged.
func FilterYear(in Inputs, year int) Inputs {
	inYear := func(d Date) bool { return !d.Valid() || d.Year() == year }

	out := Inputs{
		ReportedCellTotals: in.ReportedCellTotals,
		PropaneTotals:      in.PropaneTotals,
	}
	for _, f := range in.Helium {
		if inYear(f.FillDate) {
			out.Helium = append(out.Helium, f)
		}
	}
	for _, p := range in.Propane {
		if inYear(p.Date) {
			out.Propane = append(out.Propane, p)
		}
	}
	for _, d := range in.Diesel {
		if inYear(d.Date) {
			out.Diesel = append(out.Diesel, d)
		}
	}
	return out
}
