package http

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"logdash/internal/cache"
	"logdash/internal/charts"
	"logdash/internal/core"
	"logdash/internal/export"
	applog "logdash/internal/log"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, export.FileName, func(snap core.Snapshot) (cache.Artifact, error) {
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, snap); err != nil {
			return cache.Artifact{}, err
		}
		return cache.Artifact{ContentType: export.ContentType + "; charset=utf-8", Body: buf.Bytes()}, nil
	}, true)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, export.XLSXFileName, func(snap core.Snapshot) (cache.Artifact, error) {
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, snap); err != nil {
			return cache.Artifact{}, err
		}
		return cache.Artifact{ContentType: export.XLSXType, Body: buf.Bytes()}, nil
	}, true)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !charts.Known(name) {
		NotFoundError("Unknown chart").Write(w)
		return
	}
	s.serveArtifact(w, r, name+".png", func(snap core.Snapshot) (cache.Artifact, error) {
		var buf bytes.Buffer
		if err := charts.Render(&buf, name, snap); err != nil {
			return cache.Artifact{}, err
		}
		return cache.Artifact{ContentType: charts.ContentType, Body: buf.Bytes()}, nil
	}, false)
}

// serveArtifact renders name from the current snapshot at most once per
// generation and writes it. Attachments get a Content-Disposition header.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, name string, render func(core.Snapshot) (cache.Artifact, error), attachment bool) {
	snap, gen, ok := s.current(w)
	if !ok {
		return
	}

	art, hit, err := s.artifacts.Get(gen, name, func() (cache.Artifact, error) {
		return render(snap)
	})
	s.metrics.RecordArtifact(name, hit)
	if err != nil {
		op := applog.OpExport
		if !attachment {
			op = applog.OpRender
		}
		applog.NewStructuredLogger(s.logger).LogError(r.Context(), "Artifact render failed", err,
			applog.ComponentExport, op,
			applog.LogFields{applog.FieldGeneration: gen, "artifact": name})
		InternalServerError("Could not render "+name).Write(w)
		return
	}

	etag := `"` + strconv.FormatUint(gen, 10) + "-" + name + `"`
	h := w.Header()
	h.Set(headerGeneration, strconv.FormatUint(gen, 10))
	h.Set("ETag", etag)
	h.Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", art.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(art.Body)))
	if attachment {
		h.Set("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Body)
}
