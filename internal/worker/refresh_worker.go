package worker

import (
	"context"
	"errors"

	"logdash/internal/amqp"
	"logdash/internal/core"
	applog "logdash/internal/log"
	"logdash/internal/metrics"
)

var ErrRefresherStopped = errors.New("refresher is not running")

// Refresher is the part of the refresh service the worker drives.
type Refresher interface {
	Trigger(trigger string) bool
	Current() (core.Snapshot, uint64, bool)
}

// Consumer delivers refresh requests to a handler until ctx is done.
type Consumer interface {
	ConsumeRefreshRequests(ctx context.Context, handler amqp.RefreshHandler) error
}

// RefreshWorker turns queued refresh requests into refresher triggers.
type RefreshWorker struct {
	consumer  Consumer
	refresher Refresher
	metrics   *metrics.Collector
	logger    *applog.Logger
}

// NewRefreshWorker creates a worker. collector may be nil.
func NewRefreshWorker(consumer Consumer, refresher Refresher, collector *metrics.Collector, logger *applog.Logger) *RefreshWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &RefreshWorker{
		consumer:  consumer,
		refresher: refresher,
		metrics:   collector,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// Run consumes refresh requests until ctx is done.
func (w *RefreshWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Refresh worker started")
	err := w.consumer.ConsumeRefreshRequests(ctx, w.HandleRefreshRequest)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleRefreshRequest triggers a refresh unless the published snapshot is
// already newer than the request.
func (w *RefreshWorker) HandleRefreshRequest(ctx context.Context, msg *amqp.RefreshRequest) error {
	if w.metrics != nil {
		w.metrics.RefreshRequestsReceived.Inc()
	}

	if snap, gen, ok := w.refresher.Current(); ok && !msg.RequestedAt.IsZero() && snap.AssembledAt.After(msg.RequestedAt) {
		w.logger.DebugContext(ctx, "Refresh request already satisfied",
			applog.FieldSource, msg.Source,
			applog.FieldGeneration, gen)
		return nil
	}

	if !w.refresher.Trigger(amqp.DefaultRequestSource + ":" + msg.Source) {
		return ErrRefresherStopped
	}

	w.logger.InfoContext(ctx, "Refresh requested",
		applog.FieldSource, msg.Source,
		"requested_at", msg.RequestedAt)
	return nil
}
