package http

import (
	"net/url"
	"sort"

	"logdash/internal/charts"
)

// Tab selects which categories the dashboard shows.
type Tab string

const (
	TabCombined Tab = "combined"
	TabHelium   Tab = "helium"
	TabFuel     Tab = "fuel"
)

// PanelMode selects how a panel presents its data.
type PanelMode string

const (
	ModeGraph PanelMode = "graph"
	ModeTable PanelMode = "table"
)

// Dashboard panels that can be toggled between graph and table.
const (
	PanelHeliumFillTotals   = "helium-fill-totals"
	PanelHeliumByCell       = "helium-by-cell"
	PanelHeliumFills        = "helium-fills"
	PanelPropaneByMachinery = "propane-by-machinery"
	PanelPropaneRecords     = "propane-records"
	PanelDieselByMachinery  = "diesel-by-machinery"
	PanelDieselRecords      = "diesel-records"
)

var defaultModes = map[string]PanelMode{
	PanelHeliumFillTotals:   ModeGraph,
	PanelHeliumByCell:       ModeGraph,
	PanelHeliumFills:        ModeTable,
	PanelPropaneByMachinery: ModeGraph,
	PanelPropaneRecords:     ModeTable,
	PanelDieselByMachinery:  ModeGraph,
	PanelDieselRecords:      ModeTable,
}

var panelCharts = map[string]string{
	PanelHeliumFillTotals:   charts.HeliumFillTotals,
	PanelHeliumByCell:       charts.HeliumByCell,
	PanelHeliumFills:        charts.HeliumMonthly,
	PanelPropaneByMachinery: charts.PropaneByMachinery,
	PanelPropaneRecords:     charts.PropaneByMachinery,
	PanelDieselByMachinery:  charts.DieselByMachinery,
	PanelDieselRecords:      charts.DieselMonthly,
}

// ViewConfig is the dashboard's presentation state. It lives entirely in the
// query string so every view is a plain link.
type ViewConfig struct {
	Tab   Tab
	modes map[string]PanelMode
}

// DefaultViewConfig is the view served for a bare "/".
func DefaultViewConfig() ViewConfig {
	return ViewConfig{Tab: TabCombined, modes: map[string]PanelMode{}}
}

// ParseViewConfig reads tab and per-panel modes from query values. Unknown
// tabs, panels and modes fall back to the defaults.
func ParseViewConfig(q url.Values) ViewConfig {
	v := DefaultViewConfig()
	switch Tab(q.Get("tab")) {
	case TabHelium:
		v.Tab = TabHelium
	case TabFuel:
		v.Tab = TabFuel
	}
	for panel, def := range defaultModes {
		switch PanelMode(q.Get(panel)) {
		case ModeGraph:
			if def != ModeGraph {
				v.modes[panel] = ModeGraph
			}
		case ModeTable:
			if def != ModeTable {
				v.modes[panel] = ModeTable
			}
		}
	}
	return v
}

// Mode returns the presentation of panel.
func (v ViewConfig) Mode(panel string) PanelMode {
	if m, ok := v.modes[panel]; ok {
		return m
	}
	return defaultModes[panel]
}

// Graph reports whether panel is shown as a chart.
func (v ViewConfig) Graph(panel string) bool {
	return v.Mode(panel) == ModeGraph
}

func (v ViewConfig) ShowsHelium() bool { return v.Tab != TabFuel }

func (v ViewConfig) ShowsFuel() bool { return v.Tab != TabHelium }

// ChartURL is the image shown by panel in graph mode.
func (v ViewConfig) ChartURL(panel string) string {
	return "/charts/" + panelCharts[panel] + ".png"
}

// TabURL links to the same view with tab selected.
func (v ViewConfig) TabURL(tab string) string {
	next := v.clone()
	next.Tab = Tab(tab)
	return next.URL()
}

// ToggleURL links to the same view with panel switched between graph and
// table.
func (v ViewConfig) ToggleURL(panel string) string {
	next := v.clone()
	mode := ModeGraph
	if v.Graph(panel) {
		mode = ModeTable
	}
	if mode == defaultModes[panel] {
		delete(next.modes, panel)
	} else {
		next.modes[panel] = mode
	}
	return next.URL()
}

// URL encodes the view, omitting defaults.
func (v ViewConfig) URL() string {
	q := url.Values{}
	if v.Tab != TabCombined && v.Tab != "" {
		q.Set("tab", string(v.Tab))
	}
	panels := make([]string, 0, len(v.modes))
	for p := range v.modes {
		panels = append(panels, p)
	}
	sort.Strings(panels)
	for _, p := range panels {
		q.Set(p, string(v.modes[p]))
	}
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}

func (v ViewConfig) clone() ViewConfig {
	modes := make(map[string]PanelMode, len(v.modes))
	for k, m := range v.modes {
		modes[k] = m
	}
	return ViewConfig{Tab: v.Tab, modes: modes}
}
