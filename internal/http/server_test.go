package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"logdash/internal/core"
	"logdash/internal/export"
	"logdash/internal/metrics"
	"logdash/internal/records"
)

type fakeProvider struct {
	mu       sync.Mutex
	snap     core.Snapshot
	gen      uint64
	ready    bool
	running  bool
	triggers []string
}

func (f *fakeProvider) Current() (core.Snapshot, uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.gen, f.ready
}

func (f *fakeProvider) Trigger(trigger string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return false
	}
	f.triggers = append(f.triggers, trigger)
	return true
}

func (f *fakeProvider) publish(s core.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = s
	f.gen++
	f.ready = true
}

func testSnapshot() core.Snapshot {
	return core.Assemble(core.Inputs{
		Helium: []core.HeliumFill{
			{FillDate: core.ParseDate("2024-01-15"), Cell: "cellA", SCF: 100},
			{FillDate: core.ParseDate("2024-02-10"), Cell: "cellB", SCF: 250},
		},
		Propane: []core.PropaneReplacement{{Machinery: "forklift", Date: core.ParseDate("2024-02-01")}},
		Diesel:  []core.DieselFill{{Machinery: "excavator", Date: core.ParseDate("2024-03-01"), Gallons: 42}},
		PropaneTotals: core.PropaneTotals{Canisters: 3, GallonsPumped: 60},
	}, time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC))
}

func newTestServer(t *testing.T, p *fakeProvider, rateLimit int) (*Server, *metrics.Collector) {
	t.Helper()
	collector := metrics.NewCollector("logdash")
	s, err := NewServer(Options{
		Provider:         p,
		Metrics:          collector,
		RefreshRateLimit: rateLimit,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
	})
	return s, collector
}

func do(s *Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, &fakeProvider{}, 6)
	rec := do(s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestEndpointsBeforeFirstSnapshot(t *testing.T) {
	s, _ := newTestServer(t, &fakeProvider{}, 6)

	for _, target := range []string{"/readyz", "/api/snapshot", "/api/sheets", "/export.csv", "/export.xlsx", "/charts/helium-monthly.png"} {
		t.Run(target, func(t *testing.T) {
			rec := do(s, http.MethodGet, target, nil)
			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("status = %d", rec.Code)
			}
			if rec.Header().Get("Retry-After") == "" {
				t.Fatal("missing Retry-After")
			}
		})
	}

	rec := do(s, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Loading logistics data") {
		t.Fatalf("dashboard before snapshot: %d", rec.Code)
	}
}

func TestReadyzAfterSnapshot(t *testing.T) {
	p := &fakeProvider{}
	p.publish(testSnapshot())
	s, _ := newTestServer(t, p, 6)

	rec := do(s, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ready"`) {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestSnapshotAndSheetsAPI(t *testing.T) {
	p := &fakeProvider{}
	p.publish(testSnapshot())
	s, _ := newTestServer(t, p, 6)

	rec := do(s, http.MethodGet, "/api/snapshot", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot: %d", rec.Code)
	}
	if rec.Header().Get(headerGeneration) != "1" {
		t.Errorf("generation header = %q", rec.Header().Get(headerGeneration))
	}
	if !strings.Contains(rec.Body.String(), `"heliumTotalScf":350`) {
		t.Errorf("snapshot body missing stats: %s", rec.Body.String())
	}

	rec = do(s, http.MethodGet, "/api/sheets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sheets: %d", rec.Code)
	}
	payload, err := records.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode sheets payload: %v", err)
	}
	if len(payload.Helium) != 2 || len(payload.Fuel.Diesel) != 1 {
		t.Fatalf("payload = %+v", payload)
	}
	if len(payload.HeliumFillTotals) != 2 {
		t.Errorf("derived cell totals expected when none were reported, got %d", len(payload.HeliumFillTotals))
	}
}

func TestRefreshTrigger(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		p := &fakeProvider{running: true}
		s, _ := newTestServer(t, p, 6)
		rec := do(s, http.MethodPost, "/refresh", nil)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Header().Get("HX-Trigger"), "refresh:requested") {
			t.Errorf("HX-Trigger = %q", rec.Header().Get("HX-Trigger"))
		}
		if len(p.triggers) != 1 || p.triggers[0] != "manual" {
			t.Errorf("triggers = %v", p.triggers)
		}
	})

	t.Run("refresher stopped", func(t *testing.T) {
		s, _ := newTestServer(t, &fakeProvider{}, 6)
		rec := do(s, http.MethodPost, "/refresh", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		s, _ := newTestServer(t, &fakeProvider{running: true}, 6)
		rec := do(s, http.MethodGet, "/refresh", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		p := &fakeProvider{running: true}
		s, _ := newTestServer(t, p, 1)
		if rec := do(s, http.MethodPost, "/refresh", nil); rec.Code != http.StatusAccepted {
			t.Fatalf("first: %d", rec.Code)
		}
		rec := do(s, http.MethodPost, "/refresh", nil)
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("second: %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Error("missing Retry-After")
		}
		if len(p.triggers) != 1 {
			t.Errorf("limited request must not trigger, got %v", p.triggers)
		}
	})
}

func TestTrustedProxiesSplitRateLimitBuckets(t *testing.T) {
	p := &fakeProvider{running: true}
	s, err := NewServer(Options{
		Provider:         p,
		RefreshRateLimit: 1,
		TrustedProxies:   []string{"192.0.2.0/24"},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
	})

	from := func(ip string) http.Header {
		return http.Header{"X-Forwarded-For": []string{ip}}
	}
	if rec := do(s, http.MethodPost, "/refresh", from("198.51.100.1")); rec.Code != http.StatusAccepted {
		t.Fatalf("first client: %d", rec.Code)
	}
	if rec := do(s, http.MethodPost, "/refresh", from("198.51.100.2")); rec.Code != http.StatusAccepted {
		t.Fatalf("second client behind the proxy must have its own budget: %d", rec.Code)
	}
	if rec := do(s, http.MethodPost, "/refresh", from("198.51.100.1")); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("repeat client: %d", rec.Code)
	}
}

func TestNewServerRejectsBadTrustedProxy(t *testing.T) {
	if _, err := NewServer(Options{Provider: &fakeProvider{}, TrustedProxies: []string{"not-a-cidr"}}); err == nil {
		t.Fatal("expected an invalid CIDR to be rejected")
	}
}

func TestExportCSVCachedPerGeneration(t *testing.T) {
	p := &fakeProvider{}
	p.publish(testSnapshot())
	s, collector := newTestServer(t, p, 6)

	first := do(s, http.MethodGet, "/export.csv", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d", first.Code)
	}
	if ct := first.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := first.Header().Get("Content-Disposition"); cd != `attachment; filename="logistics-dashboard.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.Equal(first.Body.Bytes(), export.CSV(testSnapshot())) {
		t.Error("served CSV differs from the exporter output")
	}

	second := do(s, http.MethodGet, "/export.csv", nil)
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Error("same generation must serve identical bytes")
	}
	if got := testutil.ToFloat64(collector.ArtifactRequests.WithLabelValues(export.FileName, "hit")); got != 1 {
		t.Errorf("cache hits = %v", got)
	}

	etag := first.Header().Get("ETag")
	notModified := do(s, http.MethodGet, "/export.csv", http.Header{"If-None-Match": {etag}})
	if notModified.Code != http.StatusNotModified {
		t.Errorf("conditional request: %d", notModified.Code)
	}

	p.publish(core.Assemble(core.Inputs{}, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	third := do(s, http.MethodGet, "/export.csv", nil)
	if bytes.Equal(first.Body.Bytes(), third.Body.Bytes()) {
		t.Error("a new generation must be rendered again")
	}
	if third.Header().Get("ETag") == etag {
		t.Error("ETag must change with the generation")
	}
}

func TestExportXLSX(t *testing.T) {
	p := &fakeProvider{}
	p.publish(testSnapshot())
	s, _ := newTestServer(t, p, 6)

	rec := do(s, http.MethodGet, "/export.xlsx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("xlsx must be a zip archive")
	}
	if rec.Header().Get("Content-Type") != export.XLSXType {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestCharts(t *testing.T) {
	p := &fakeProvider{}
	p.publish(testSnapshot())
	s, _ := newTestServer(t, p, 6)

	rec := do(s, http.MethodGet, "/charts/diesel-by-machinery.png", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("chart must be a PNG")
	}
	if rec.Header().Get("Content-Disposition") != "" {
		t.Error("charts are inline")
	}

	if rec := do(s, http.MethodGet, "/charts/unknown.png", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown chart: %d", rec.Code)
	}
}

func TestDashboardViews(t *testing.T) {
	p := &fakeProvider{}
	p.publish(testSnapshot())
	s, _ := newTestServer(t, p, 6)

	tests := []struct {
		target  string
		want    []string
		notWant []string
	}{
		{
			target: "/",
			want:   []string{"Helium Fill Totals", "Diesel by Machinery", "/charts/helium-by-cell.png", "cellB"},
		},
		{
			target:  "/?tab=helium",
			want:    []string{"Helium by Cell"},
			notWant: []string{"Diesel by Machinery"},
		},
		{
			target:  "/?tab=fuel&diesel-by-machinery=table",
			want:    []string{"excavator", "Recent Diesel Fills"},
			notWant: []string{"Helium by Cell", "/charts/diesel-by-machinery.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(s, http.MethodGet, tt.target, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			body := rec.Body.String()
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("missing %q", w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(body, w) {
					t.Errorf("unexpected %q", w)
				}
			}
		})
	}
}

func TestSecurityHeadersAndStatic(t *testing.T) {
	s, _ := newTestServer(t, &fakeProvider{}, 6)

	rec := do(s, http.MethodGet, "/static/style.css", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("static: %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("request id missing")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &fakeProvider{}, 6)
	do(s, http.MethodGet, "/healthz", nil)

	rec := do(s, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `logdash_http_requests_total{method="GET",route="/healthz",status="200"} 1`) {
		t.Errorf("request metric missing:\n%s", rec.Body.String())
	}
}
