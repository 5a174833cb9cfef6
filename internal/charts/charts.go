// Package charts renders snapshot views as PNG images.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"logdash/internal/core"
)

// Chart names served under /charts/{name}.png.
const (
	HeliumMonthly      = "helium-monthly"
	DieselMonthly      = "diesel-monthly"
	HeliumByCell       = "helium-by-cell"
	HeliumFillTotals   = "helium-fill-totals"
	PropaneByMachinery = "propane-by-machinery"
	DieselByMachinery  = "diesel-by-machinery"
)

const (
	ContentType = "image/png"

	width  = 720
	height = 360

	// topN bars are drawn for ranked charts.
	topN = 10
)

var ErrUnknownChart = errors.New("unknown chart")

type renderer func(w io.Writer, s core.Snapshot) error

var renderers = map[string]renderer{
	HeliumMonthly: func(w io.Writer, s core.Snapshot) error {
		return renderMonthly(w, "Helium (SCF)", s.HeliumMonthly, chart.ColorBlue)
	},
	DieselMonthly: func(w io.Writer, s core.Snapshot) error {
		return renderMonthly(w, "Diesel (gal)", s.DieselMonthly, chart.ColorOrange)
	},
	HeliumByCell: func(w io.Writer, s core.Snapshot) error {
		return renderRanked(w, "Helium by Cell (SCF)", s.HeliumByCell, chart.ColorBlue)
	},
	HeliumFillTotals: func(w io.Writer, s core.Snapshot) error {
		totals := s.ReportedCellTotals
		if len(totals) == 0 {
			totals = s.CellTotals
		}
		ranked := make([]core.RankedTotal, 0, len(totals))
		for _, t := range totals {
			ranked = append(ranked, core.RankedTotal{Label: t.Cell, Value: t.TotalSCF})
		}
		return renderRanked(w, "Helium Fill Totals (SCF)", ranked, chart.ColorCyan)
	},
	PropaneByMachinery: func(w io.Writer, s core.Snapshot) error {
		return renderRanked(w, "Propane Canisters by Machinery", s.PropaneByMachinery, chart.ColorGreen)
	},
	DieselByMachinery: func(w io.Writer, s core.Snapshot) error {
		return renderRanked(w, "Diesel by Machinery (gal)", s.DieselByMachinery, chart.ColorOrange)
	},
}

// Names lists the renderable charts in a stable order.
func Names() []string {
	return []string{HeliumMonthly, DieselMonthly, HeliumByCell, HeliumFillTotals, PropaneByMachinery, DieselByMachinery}
}

// Known reports whether name is a renderable chart.
func Known(name string) bool {
	_, ok := renderers[name]
	return ok
}

// Render writes the named chart of s as PNG.
func Render(w io.Writer, name string, s core.Snapshot) error {
	r, ok := renderers[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
	return r(w, s)
}

func renderMonthly(w io.Writer, unit string, points []core.MonthlyPoint, color drawing.Color) error {
	xs := make([]float64, len(points))
	period := make([]float64, len(points))
	cumulative := make([]float64, len(points))
	ticks := make([]chart.Tick, len(points))
	var max float64
	for i, p := range points {
		xs[i] = float64(p.Month)
		period[i] = p.Period
		cumulative[i] = p.Cumulative
		ticks[i] = chart.Tick{Value: float64(p.Month), Label: p.Label}
		max = math.Max(max, p.Cumulative)
	}

	ch := chart.Chart{
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Ticks: ticks, Range: &chart.ContinuousRange{Min: 1, Max: 12}},
		YAxis:      chart.YAxis{Name: unit, Range: &chart.ContinuousRange{Min: 0, Max: axisMax(max)}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Cumulative",
				XValues: xs,
				YValues: cumulative,
				Style:   chart.Style{StrokeColor: color, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "Month",
				XValues: xs,
				YValues: period,
				Style:   chart.Style{StrokeColor: chart.ColorAlternateGray, StrokeWidth: 1, StrokeDashArray: []float64{4, 2}},
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

func renderRanked(w io.Writer, title string, totals []core.RankedTotal, color drawing.Color) error {
	totals = core.Top(totals, topN)

	bars := make([]chart.Value, 0, len(totals))
	var max float64
	for _, t := range totals {
		bars = append(bars, chart.Value{
			Label: t.Label,
			Value: t.Value,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
		max = math.Max(max, t.Value)
	}
	if len(bars) == 0 {
		bars = append(bars, chart.Value{Label: "No data", Value: 0})
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      width,
		Height:     height,
		BarWidth:   40,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: axisMax(max)}},
		Bars:       bars,
	}
	return bc.Render(chart.PNG, w)
}

// axisMax pads the top of the value axis; an all-zero series still gets a
// non-empty range.
func axisMax(max float64) float64 {
	if max <= 0 {
		return 1
	}
	return math.Ceil(max * 1.1)
}
