package http

import (
	"bytes"
	"net/http"

	"logdash/internal/core"
	applog "logdash/internal/log"
)

const (
	// recentRows is the length of the recent-records tables.
	recentRows = 20
	// topRows bounds the ranked tables.
	topRows = 15
)

// dashboardPage is the template data of the dashboard.
type dashboardPage struct {
	View       ViewConfig
	Ready      bool
	Generation uint64
	Snapshot   core.Snapshot

	FillTotals         []core.HeliumCellTotal
	HeliumByCell       []core.RankedTotal
	PropaneByMachinery []core.RankedTotal
	DieselByMachinery  []core.RankedTotal

	RecentHelium  []core.HeliumFill
	RecentPropane []core.PropaneReplacement
	RecentDiesel  []core.DieselFill
}

func newDashboardPage(view ViewConfig, snap core.Snapshot, gen uint64, ready bool) dashboardPage {
	p := dashboardPage{View: view, Ready: ready, Generation: gen, Snapshot: snap}
	if !ready {
		return p
	}
	p.FillTotals = snap.ReportedCellTotals
	if len(p.FillTotals) == 0 {
		p.FillTotals = snap.CellTotals
	}
	p.HeliumByCell = core.Top(snap.HeliumByCell, topRows)
	p.PropaneByMachinery = core.Top(snap.PropaneByMachinery, topRows)
	p.DieselByMachinery = core.Top(snap.DieselByMachinery, topRows)
	p.RecentHelium = core.Recent(snap.Helium, recentRows)
	p.RecentPropane = core.Recent(snap.Propane, recentRows)
	p.RecentDiesel = core.Recent(snap.Diesel, recentRows)
	return p
}

// handleDashboard renders the main dashboard page. Before the first snapshot
// the page renders a loading state that polls itself.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view := ParseViewConfig(r.URL.Query())
	snap, gen, ready := s.provider.Current()

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard_page", newDashboardPage(view, snap, gen, ready)); err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard template execution failed",
			applog.FieldOperation, applog.OpRender,
			applog.FieldError, err)
		InternalServerError("Could not render dashboard").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if !ready {
		w.Header().Set("Retry-After", "5")
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = buf.WriteTo(w)
	}
}
