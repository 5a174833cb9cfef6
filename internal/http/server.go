package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"logdash/internal/cache"
	"logdash/internal/core"
	applog "logdash/internal/log"
	"logdash/internal/metrics"
	"logdash/internal/middleware/ratelimit"
	"logdash/internal/middleware/security"
	"logdash/internal/middleware/trace"
	appweb "logdash/web"
)

// SnapshotProvider exposes the latest published snapshot and accepts
// out-of-band refresh requests.
type SnapshotProvider interface {
	Current() (core.Snapshot, uint64, bool)
	Trigger(trigger string) bool
}

// Options configures the dashboard server.
type Options struct {
	Addr              string
	Provider          SnapshotProvider
	Metrics           *metrics.Collector
	Logger            *applog.Logger
	RefreshRateLimit  int
	TrustedProxies    []string
	ArtifactCacheSize int
	ArtifactCacheTTL  time.Duration
}

type Server struct {
	http.Server
	templates *template.Template
	provider  SnapshotProvider
	metrics   *metrics.Collector
	logger    *applog.Logger
	started   time.Time

	artifacts    *cache.ArtifactCache
	cacheManager *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// retryAfterSeconds is advertised while no snapshot has been published.
const retryAfterSeconds = 5

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector("logdash")
	}
	if opts.ArtifactCacheSize <= 0 {
		opts.ArtifactCacheSize = 64
	}
	if opts.ArtifactCacheTTL <= 0 {
		opts.ArtifactCacheTTL = time.Hour
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:    t,
		provider:     opts.Provider,
		metrics:      opts.Metrics,
		logger:       logger,
		started:      time.Now(),
		artifacts:    cache.NewArtifactCache(opts.ArtifactCacheSize, opts.ArtifactCacheTTL),
		cacheManager: cache.NewManager(opts.Logger),
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RefreshRateLimit}),
		detector:     security.NewDetector(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.limiter.Stop()
			return nil, err
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, opts.Logger, opts.Metrics)

	s.cacheManager.Register(s.artifacts)
	s.cacheManager.StartCleanup(10 * time.Minute)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(s.detector.Middleware(s.logger))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static)).Methods(http.MethodGet, http.MethodHead)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/api/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/sheets", s.handleSheets).Methods(http.MethodGet)
	r.HandleFunc("/export.csv", s.handleExportCSV).Methods(http.MethodGet)
	r.HandleFunc("/export.xlsx", s.handleExportXLSX).Methods(http.MethodGet)
	r.HandleFunc("/charts/{name}.png", s.handleChart).Methods(http.MethodGet)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError("Too many refresh requests, try again shortly").Write(w)
	})
	r.Handle("/refresh", limited(http.HandlerFunc(s.handleRefresh))).Methods(http.MethodPost)

	return r
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// current returns the published snapshot or writes a 503 with Retry-After.
func (s *Server) current(w http.ResponseWriter) (core.Snapshot, uint64, bool) {
	snap, gen, ok := s.provider.Current()
	if !ok {
		ServiceUnavailableError(core.ErrNoSnapshot.Error(), retryAfterSeconds).Write(w)
	}
	return snap, gen, ok
}

var templateFuncs = template.FuncMap{
	"num": func(v float64) string {
		return humanize.CommafWithDigits(v, 1)
	},
	"int": func(v int) string {
		return humanize.Comma(int64(v))
	},
	"ago": func(t time.Time) string {
		return humanize.Time(t)
	},
	"stamp": func(t time.Time) string {
		return t.Format("Jan 2, 2006 15:04")
	},
	"gen": func(g uint64) string {
		return strconv.FormatUint(g, 10)
	},
	"dict": func(pairs ...any) (map[string]any, error) {
		if len(pairs)%2 != 0 {
			return nil, errors.New("dict: odd number of arguments")
		}
		m := make(map[string]any, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			key, ok := pairs[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
			}
			m[key] = pairs[i+1]
		}
		return m, nil
	},
}
