package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"logdash/internal/core"
	applog "logdash/internal/log"
	"logdash/internal/metrics"
	"logdash/internal/sheets"
)

// Refresh triggers, recorded in logs.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerQueue    = "queue"
)

// RefresherConfig holds configuration for the refresher
type RefresherConfig struct {
	// Interval is how often the snapshot is rebuilt (default: 1h)
	Interval time.Duration

	// YearToDate restricts records to the current calendar year
	YearToDate bool

	// Now is the clock used for assembly time and the year filter
	Now func() time.Time
}

// DefaultRefresherConfig returns sensible defaults
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Interval:   time.Hour,
		YearToDate: true,
		Now:        time.Now,
	}
}

type published struct {
	snapshot   core.Snapshot
	generation uint64
}

// Refresher fetches both categories, assembles a snapshot and publishes it.
// At most one refresh is in flight: starting a new one cancels the running
// one, and only the newest generation may publish.
type Refresher struct {
	source     sheets.Source
	config     RefresherConfig
	logger     *applog.Logger
	structured *applog.StructuredLogger
	metrics    *metrics.Collector

	current atomic.Pointer[published]

	flightMu   sync.Mutex
	generation uint64
	cancel     context.CancelFunc

	triggerCh chan string
	inflight  sync.WaitGroup

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefresher creates a refresher. collector may be nil.
func NewRefresher(source sheets.Source, config RefresherConfig, logger *applog.Logger, collector *metrics.Collector) *Refresher {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentRefresher)
	return &Refresher{
		source:     source,
		config:     config,
		logger:     logger,
		structured: applog.NewStructuredLogger(logger),
		metrics:    collector,
		triggerCh:  make(chan string, 1),
	}
}

// Current returns the latest published snapshot and its generation.
func (r *Refresher) Current() (core.Snapshot, uint64, bool) {
	p := r.current.Load()
	if p == nil {
		return core.Snapshot{}, 0, false
	}
	return p.snapshot, p.generation, true
}

// Refresh runs one refresh cycle and publishes the result. It returns
// core.ErrRefreshSuperseded when a newer refresh started before this one
// could publish.
func (r *Refresher) Refresh(ctx context.Context) (core.Snapshot, error) {
	return r.refresh(ctx, TriggerManual)
}

func (r *Refresher) refresh(ctx context.Context, trigger string) (core.Snapshot, error) {
	start := time.Now()

	r.flightMu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.generation++
	gen := r.generation
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.flightMu.Unlock()

	defer func() {
		r.flightMu.Lock()
		if r.generation == gen {
			r.cancel = nil
		}
		r.flightMu.Unlock()
		cancel()
	}()

	in, failed := r.fetch(ctx)
	if err := ctx.Err(); err != nil {
		if r.superseded(gen) {
			r.recordOutcome(metrics.OutcomeSuperseded)
			return core.Snapshot{}, core.ErrRefreshSuperseded
		}
		r.recordOutcome(metrics.OutcomeFailed)
		return core.Snapshot{}, fmt.Errorf("refresh: %w", err)
	}

	now := r.config.Now()
	if r.config.YearToDate {
		in = core.FilterYear(in, now.Year())
	}
	snap := core.Assemble(in, now)

	r.flightMu.Lock()
	if r.generation != gen {
		r.flightMu.Unlock()
		r.recordOutcome(metrics.OutcomeSuperseded)
		return snap, core.ErrRefreshSuperseded
	}
	r.current.Store(&published{snapshot: snap, generation: gen})
	r.flightMu.Unlock()

	duration := time.Since(start)
	if r.metrics != nil {
		r.metrics.RefreshDuration.Observe(duration.Seconds())
		r.metrics.RecordSnapshot(gen, snap.AssembledAt, len(snap.Helium), len(snap.Propane), len(snap.Diesel))
	}
	if failed > 0 {
		r.recordOutcome(metrics.OutcomePartial)
	} else {
		r.recordOutcome(metrics.OutcomeSuccess)
	}
	r.structured.LogRefreshCompleted(ctx, gen, trigger,
		len(snap.Helium), len(snap.Propane), len(snap.Diesel), duration.Milliseconds())

	return snap, nil
}

// fetch reads both categories concurrently. A category that fails is logged
// and contributes no records; the count of failed categories is returned.
func (r *Refresher) fetch(ctx context.Context) (core.Inputs, int) {
	var (
		helium sheets.HeliumData
		fuel   sheets.FuelData
		failed atomic.Int32
		g      errgroup.Group
	)

	g.Go(func() error {
		data, err := r.source.ReadHelium(ctx)
		if err != nil {
			r.fetchFailed(ctx, "helium", err)
			failed.Add(1)
			return nil
		}
		helium = data
		return nil
	})
	g.Go(func() error {
		data, err := r.source.ReadFuel(ctx)
		if err != nil {
			r.fetchFailed(ctx, "fuel", err)
			failed.Add(1)
			return nil
		}
		fuel = data
		return nil
	})
	_ = g.Wait()

	return core.Inputs{
		Helium:             helium.Fills,
		ReportedCellTotals: helium.ReportedTotals,
		Propane:            fuel.Propane,
		Diesel:             fuel.Diesel,
		PropaneTotals:      fuel.Totals,
	}, int(failed.Load())
}

func (r *Refresher) fetchFailed(ctx context.Context, category string, err error) {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return
	}
	r.logger.WarnContext(ctx, "Source fetch failed, using empty data",
		applog.FieldCategory, category,
		applog.FieldOperation, applog.OpFetch,
		applog.FieldError, err)
	if r.metrics != nil {
		r.metrics.RecordFetchError(category)
	}
}

func (r *Refresher) superseded(gen uint64) bool {
	r.flightMu.Lock()
	defer r.flightMu.Unlock()
	return r.generation != gen
}

func (r *Refresher) recordOutcome(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordRefresh(outcome)
	}
}

// Trigger requests an out-of-band refresh from the running loop. Requests
// arriving while one is already pending are coalesced. It reports whether
// the refresher is running.
func (r *Refresher) Trigger(trigger string) bool {
	if !r.IsRunning() {
		return false
	}
	select {
	case r.triggerCh <- trigger:
	default:
	}
	return true
}

// Start begins the refresh loop. Returns an error if already running.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("refresher is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	go r.runLoop(ctx, stopCh, doneCh)

	r.logger.InfoContext(ctx, "Refresher started",
		"interval", r.config.Interval,
		"year_to_date", r.config.YearToDate)

	return nil
}

// Stop stops the loop, cancels any refresh in flight and waits for completion.
// After a timed-out Stop it may be called again to keep waiting.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.stopCh = nil
	r.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}

	select {
	case <-doneCh:
		r.logger.InfoContext(ctx, "Refresher stopped gracefully")
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Refresher stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	return nil
}

// IsRunning returns whether the refresh loop is currently running
func (r *Refresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Refresher) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	loopCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		r.inflight.Wait()
	}()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.spawn(loopCtx, TriggerStartup)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.spawn(loopCtx, TriggerSchedule)
		case trigger := <-r.triggerCh:
			r.spawn(loopCtx, trigger)
		}
	}
}

// spawn runs a refresh without blocking the loop so that a newer trigger can
// supersede it.
func (r *Refresher) spawn(ctx context.Context, trigger string) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		_, err := r.refresh(ctx, trigger)
		switch {
		case err == nil, errors.Is(err, core.ErrRefreshSuperseded):
		case ctx.Err() != nil:
		default:
			r.logger.ErrorContext(ctx, "Refresh failed",
				applog.FieldTrigger, trigger,
				applog.FieldError, err)
		}
	}()
}
