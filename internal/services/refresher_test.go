package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"logdash/internal/core"
	"logdash/internal/metrics"
	"logdash/internal/sheets"
	"logdash/internal/sheets/remote"
)

type fakeSource struct {
	helium    sheets.HeliumData
	fuel      sheets.FuelData
	heliumErr error
	fuelErr   error

	// block makes the first ReadHelium call wait for cancellation.
	block   bool
	entered chan struct{}
	calls   atomic.Int32
}

func (f *fakeSource) ReadHelium(ctx context.Context) (sheets.HeliumData, error) {
	if f.calls.Add(1) == 1 && f.block {
		close(f.entered)
		<-ctx.Done()
		return sheets.HeliumData{}, ctx.Err()
	}
	return f.helium, f.heliumErr
}

func (f *fakeSource) ReadFuel(ctx context.Context) (sheets.FuelData, error) {
	return f.fuel, f.fuelErr
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
}

func testSource() *fakeSource {
	return &fakeSource{
		helium: sheets.HeliumData{Fills: []core.HeliumFill{
			{FillDate: core.NewDate(2024, 1, 5), Cell: "cellA", SCF: 100},
			{FillDate: core.NewDate(2024, 1, 20), Cell: "cellA", SCF: 50},
			{FillDate: core.NewDate(2023, 12, 1), Cell: "cellB", SCF: 999},
		}},
		fuel: sheets.FuelData{
			Propane: []core.PropaneReplacement{{Machinery: "forklift", Date: core.NewDate(2024, 2, 1)}},
			Diesel:  []core.DieselFill{{Machinery: "excavator", Date: core.NewDate(2024, 3, 1), Gallons: 30}},
			Totals:  core.PropaneTotals{Canisters: 4, GallonsPumped: 80},
		},
	}
}

func newTestRefresher(src sheets.Source, ytd bool) *Refresher {
	cfg := DefaultRefresherConfig()
	cfg.YearToDate = ytd
	cfg.Now = fixedNow
	return NewRefresher(src, cfg, nil, metrics.NewCollector("test"))
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	r := newTestRefresher(testSource(), true)

	if _, _, ok := r.Current(); ok {
		t.Fatal("no snapshot expected before the first refresh")
	}

	snap, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(snap.Helium) != 2 {
		t.Fatalf("expected the 2023 fill to be filtered out, got %d fills", len(snap.Helium))
	}
	if snap.Stats.HeliumTotalSCF != 150 {
		t.Errorf("helium total = %v", snap.Stats.HeliumTotalSCF)
	}
	if snap.Stats.PropaneCanisters != 4 {
		t.Errorf("canisters = %v", snap.Stats.PropaneCanisters)
	}
	if !snap.AssembledAt.Equal(fixedNow()) {
		t.Errorf("assembled at %v", snap.AssembledAt)
	}

	cur, gen, ok := r.Current()
	if !ok || gen != 1 {
		t.Fatalf("current = gen %d ok %v", gen, ok)
	}
	if cur.Stats != snap.Stats {
		t.Errorf("published stats differ from returned stats")
	}
}

func TestRefreshWithoutYearFilter(t *testing.T) {
	r := newTestRefresher(testSource(), false)
	snap, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(snap.Helium) != 3 {
		t.Fatalf("expected all fills, got %d", len(snap.Helium))
	}
}

func TestRefreshPartialFailure(t *testing.T) {
	tests := []struct {
		name        string
		heliumErr   error
		fuelErr     error
		wantHelium  int
		wantDiesel  int
		wantFailure []string
	}{
		{name: "helium fails", heliumErr: errors.New("timeout"), wantHelium: 0, wantDiesel: 1, wantFailure: []string{"helium"}},
		{name: "fuel fails", fuelErr: errors.New("503"), wantHelium: 2, wantDiesel: 0, wantFailure: []string{"fuel"}},
		{name: "both fail", heliumErr: errors.New("x"), fuelErr: errors.New("y"), wantFailure: []string{"helium", "fuel"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testSource()
			src.heliumErr = tt.heliumErr
			src.fuelErr = tt.fuelErr
			if tt.heliumErr != nil {
				src.helium = sheets.HeliumData{}
			}
			if tt.fuelErr != nil {
				src.fuel = sheets.FuelData{}
			}
			r := newTestRefresher(src, true)

			snap, err := r.Refresh(context.Background())
			if err != nil {
				t.Fatalf("partial failure must still publish: %v", err)
			}
			if len(snap.Helium) != tt.wantHelium || len(snap.Diesel) != tt.wantDiesel {
				t.Fatalf("helium=%d diesel=%d", len(snap.Helium), len(snap.Diesel))
			}
			if len(snap.HeliumMonthly) != 12 || len(snap.DieselMonthly) != 12 {
				t.Fatal("monthly series must always have 12 points")
			}
			if _, _, ok := r.Current(); !ok {
				t.Fatal("snapshot should be published")
			}
		})
	}
}

func TestNewerRefreshSupersedesRunningOne(t *testing.T) {
	src := testSource()
	src.block = true
	src.entered = make(chan struct{})
	r := newTestRefresher(src, true)

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = r.Refresh(context.Background())
	}()

	<-src.entered
	if _, err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	wg.Wait()

	if !errors.Is(firstErr, core.ErrRefreshSuperseded) {
		t.Fatalf("expected superseded, got %v", firstErr)
	}
	_, gen, ok := r.Current()
	if !ok || gen != 2 {
		t.Fatalf("expected generation 2 published, got %d", gen)
	}
}

func TestSupersededRemoteRefreshesKeepSourceAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(80 * time.Millisecond)
		switch {
		case strings.HasPrefix(r.URL.Path, "/helium/"):
			_, _ = w.Write([]byte("Date,Location,Quantity\n2024-01-15,cellA,100\n"))
		case strings.HasPrefix(r.URL.Path, "/fuel/"):
			_, _ = w.Write([]byte("Date,Vehicle,Fuel Type,Quantity\n2024-03-01,excavator,Diesel,20\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	fetch := remote.NewFetcher(srv.Client(), time.Second, nil)
	src := remote.NewCSVExport(fetch,
		remote.ExportURL(srv.URL+"/", "helium", ""),
		remote.ExportURL(srv.URL+"/", "fuel", ""))
	r := newTestRefresher(src, true)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Refresh(context.Background())
		}(i)
		time.Sleep(20 * time.Millisecond)
	}

	snap, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("newest refresh: %v", err)
	}
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, core.ErrRefreshSuperseded) {
			t.Fatalf("refresh %d: expected superseded, got %v", i, err)
		}
	}
	if len(snap.Helium) != 1 || len(snap.Diesel) != 1 {
		t.Fatalf("newest snapshot lost data: helium=%d diesel=%d", len(snap.Helium), len(snap.Diesel))
	}

	// Later refreshes still reach the source.
	snap, err = r.Refresh(context.Background())
	if err != nil || len(snap.Helium) != 1 {
		t.Fatalf("follow-up refresh: helium=%d err=%v", len(snap.Helium), err)
	}
}

func TestRefreshCancelledByCaller(t *testing.T) {
	src := testSource()
	src.block = true
	src.entered = make(chan struct{})
	r := newTestRefresher(src, true)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-src.entered
		cancel()
	}()

	_, err := r.Refresh(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, _, ok := r.Current(); ok {
		t.Fatal("a cancelled refresh must not publish")
	}
}

func TestRefresherStartStop(t *testing.T) {
	r := newTestRefresher(testSource(), true)

	if r.Trigger(TriggerManual) {
		t.Fatal("trigger should report false while stopped")
	}

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Fatal("expected error when starting twice")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, _, ok := r.Current(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("startup refresh did not publish")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !r.Trigger(TriggerManual) {
		t.Fatal("trigger should report true while running")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.IsRunning() {
		t.Fatal("refresher should not be running after stop")
	}
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("second stop should be a no-op: %v", err)
	}
}

func TestDefaultRefresherConfig(t *testing.T) {
	cfg := DefaultRefresherConfig()
	if cfg.Interval != time.Hour {
		t.Errorf("expected hourly refresh, got %v", cfg.Interval)
	}
	if !cfg.YearToDate {
		t.Error("year to date should default to true")
	}
}

// stubbornSource ignores cancellation until released.
type stubbornSource struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stubbornSource) ReadHelium(ctx context.Context) (sheets.HeliumData, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return sheets.HeliumData{}, nil
}

func (s *stubbornSource) ReadFuel(ctx context.Context) (sheets.FuelData, error) {
	return sheets.FuelData{}, nil
}

func TestRefresherStopAfterTimeout(t *testing.T) {
	src := &stubbornSource{entered: make(chan struct{}), release: make(chan struct{})}
	r := newTestRefresher(src, true)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-src.entered

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		err := r.Stop(ctx)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("stop %d: expected deadline exceeded, got %v", i, err)
		}
	}

	close(src.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("final stop: %v", err)
	}
	if r.IsRunning() {
		t.Fatal("refresher should not be running after stop")
	}
}
