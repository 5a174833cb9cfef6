// Command logdash-export fetches both logs once and writes the dashboard
// report as CSV or XLSX.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"logdash/internal/backend"
	"logdash/internal/cli"
	"logdash/internal/core"
	"logdash/internal/export"
	applog "logdash/internal/log"
	"logdash/internal/services"
	"logdash/internal/sheets"
)

type options struct {
	year   int
	all    bool
	format string
	out    string
	verify bool
}

func main() {
	var opts options
	flag.IntVar(&opts.year, "year", time.Now().Year(), "Calendar year to export")
	flag.BoolVar(&opts.all, "all", false, "Export every year instead of -year")
	flag.StringVar(&opts.format, "format", "csv", "Output format: csv or xlsx")
	flag.StringVar(&opts.out, "out", "-", "Output file, - for stdout")
	flag.BoolVar(&opts.verify, "verify", false, "Re-read the CSV report and check the helium section")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.FetchTimeout+10*time.Second)
	defer cancel()

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to create data backend", applog.FieldError, err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() { _ = result.Cleanup() }()
	}

	var w io.Writer = os.Stdout
	if opts.out != "-" {
		f, err := os.Create(opts.out)
		if err != nil {
			logger.Error("Failed to create output file", applog.FieldError, err, "path", opts.out)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	if err := run(ctx, result.Source, opts, w, logger); err != nil {
		logger.Error("Export failed", applog.FieldError, err, applog.FieldFormat, opts.format)
		os.Exit(1)
	}
}

func run(ctx context.Context, source sheets.Source, opts options, w io.Writer, logger *applog.Logger) error {
	if opts.format != "csv" && opts.format != "xlsx" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.verify && opts.format != "csv" {
		return fmt.Errorf("-verify applies to csv output only")
	}

	refresher := services.NewRefresher(source, services.RefresherConfig{YearToDate: false}, logger, nil)
	snap, err := refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if !opts.all {
		snap = core.Assemble(core.FilterYear(snap.Inputs(), opts.year), snap.AssembledAt)
	}

	logger = logger.WithComponent(applog.ComponentExport)

	if opts.format == "xlsx" {
		if err := export.WriteXLSX(w, snap); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	} else {
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, snap); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		if opts.verify {
			if err := export.Verify(buf.Bytes(), snap); err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			logger.Info("Report verified", applog.FieldHeliumFills, len(snap.Helium))
		}
		if _, err := buf.WriteTo(w); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	logger.Info("Export written",
		applog.FieldFormat, opts.format,
		applog.FieldYear, opts.year,
		applog.FieldHeliumFills, len(snap.Helium),
		applog.FieldPropaneSwaps, len(snap.Propane),
		applog.FieldDieselEntries, len(snap.Diesel))
	return nil
}
