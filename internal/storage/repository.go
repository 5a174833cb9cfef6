package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	"logdash/internal/core"
	ports "logdash/internal/sheets"

	_ "modernc.org/sqlite"
)

// SQLiteRepository reads the dashboard categories from a logbook database
// maintained by other tools. It never writes records.
type SQLiteRepository struct {
	db *sqlx.DB
}

var _ ports.Source = (*SQLiteRepository)(nil)

type (
	heliumRow struct {
		FillDate string  `db:"fill_date"`
		Cell     string  `db:"cell"`
		SCF      float64 `db:"scf"`
	}

	cellTotalRow struct {
		Cell      string  `db:"cell"`
		TotalSCF  float64 `db:"total_scf"`
		FillCount int     `db:"fill_count"`
	}

	propaneRow struct {
		Machinery  string `db:"machinery"`
		ReplacedOn string `db:"replaced_on"`
	}

	dieselRow struct {
		Machinery string  `db:"machinery"`
		FueledOn  string  `db:"fueled_on"`
		Gallons   float64 `db:"gallons"`
	}

	propaneTotalsRow struct {
		Canisters     float64 `db:"canisters"`
		GallonsPumped float64 `db:"gallons_pumped"`
	}
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReadHelium implements sheets.HeliumReader. Rows come back in entry order.
func (r *SQLiteRepository) ReadHelium(ctx context.Context) (ports.HeliumData, error) {
	var rows []heliumRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT fill_date, cell, scf FROM helium_fills ORDER BY id`); err != nil {
		return ports.HeliumData{}, fmt.Errorf("select helium fills: %w", err)
	}
	var totals []cellTotalRow
	if err := r.db.SelectContext(ctx, &totals,
		`SELECT cell, total_scf, fill_count FROM helium_cell_totals ORDER BY rowid`); err != nil {
		return ports.HeliumData{}, fmt.Errorf("select helium totals: %w", err)
	}

	out := ports.HeliumData{
		Fills:          make([]core.HeliumFill, 0, len(rows)),
		ReportedTotals: make([]core.HeliumCellTotal, 0, len(totals)),
	}
	for _, row := range rows {
		out.Fills = append(out.Fills, core.HeliumFill{
			FillDate: core.ParseDate(row.FillDate),
			Cell:     row.Cell,
			SCF:      core.Sanitize(row.SCF),
		})
	}
	for _, t := range totals {
		out.ReportedTotals = append(out.ReportedTotals, core.HeliumCellTotal{
			Cell:      t.Cell,
			TotalSCF:  core.Sanitize(t.TotalSCF),
			FillCount: max(t.FillCount, 0),
		})
	}
	return out, nil
}

// ReadFuel implements sheets.FuelReader.
func (r *SQLiteRepository) ReadFuel(ctx context.Context) (ports.FuelData, error) {
	var propane []propaneRow
	if err := r.db.SelectContext(ctx, &propane,
		`SELECT machinery, replaced_on FROM propane_replacements ORDER BY id`); err != nil {
		return ports.FuelData{}, fmt.Errorf("select propane replacements: %w", err)
	}
	var diesel []dieselRow
	if err := r.db.SelectContext(ctx, &diesel,
		`SELECT machinery, fueled_on, gallons FROM diesel_fills ORDER BY id`); err != nil {
		return ports.FuelData{}, fmt.Errorf("select diesel fills: %w", err)
	}

	out := ports.FuelData{
		Propane: make([]core.PropaneReplacement, 0, len(propane)),
		Diesel:  make([]core.DieselFill, 0, len(diesel)),
	}
	for _, p := range propane {
		out.Propane = append(out.Propane, core.PropaneReplacement{Machinery: p.Machinery, Date: core.ParseDate(p.ReplacedOn)})
	}
	for _, d := range diesel {
		out.Diesel = append(out.Diesel, core.DieselFill{
			Machinery: d.Machinery,
			Date:      core.ParseDate(d.FueledOn),
			Gallons:   core.Sanitize(d.Gallons),
		})
	}

	var totals propaneTotalsRow
	err := r.db.GetContext(ctx, &totals, `SELECT canisters, gallons_pumped FROM propane_totals WHERE id = 1`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return ports.FuelData{}, fmt.Errorf("select propane totals: %w", err)
	default:
		out.Totals = core.PropaneTotals{
			Canisters:     core.Sanitize(totals.Canisters),
			GallonsPumped: core.Sanitize(totals.GallonsPumped),
		}
	}
	return out, nil
}
