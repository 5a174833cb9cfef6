// Package remote reads dashboard data over HTTP: either the CSV export of the
// public spreadsheets or an endpoint serving the JSON contract.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	applog "logdash/internal/log"
)

const maxBodyBytes = 16 << 20

var ErrUnavailable = errors.New("remote source unavailable")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Fetcher performs GETs with a per-request timeout behind a circuit breaker.
// Concurrent requests for the same URL share one round trip.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	group   singleflight.Group
	logger  *applog.Logger
}

func NewFetcher(client *http.Client, timeout time.Duration, logger *applog.Logger) *Fetcher {
	if client == nil {
		client = newHTTPClientWithPooling()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentRemote)

	f := &Fetcher{client: client, timeout: timeout, logger: logger}
	f.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sheets-remote",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// A cancelled request says nothing about the remote's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})
	return f
}

// Get returns the body of url. The shared round trip is detached from the
// caller's cancellation and bounded by the fetcher timeout, so a caller that
// gives up neither fails the others waiting on it nor counts against the
// breaker.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(url, func() (any, error) {
		return f.cb.Execute(func() (interface{}, error) {
			return f.get(shared, url)
		})
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}

	err := res.Err
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return res.Val.([]byte), nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	f.logger.DebugContext(ctx, "Fetched remote sheet", applog.FieldURL, url, "bytes", len(body))
	return body, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for a handful of
// long-lived hosts with keep-alive.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
