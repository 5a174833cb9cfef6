package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"logdash/internal/core"
	"logdash/internal/records"
	ports "logdash/internal/sheets"
)

// Seed file names looked up by NewFromFiles.
const (
	PayloadFile = "payload.json"
	HeliumFile  = "helium.csv"
	FuelFile    = "fuel.csv"
)

// Store is an in-process source holding one copy of each category.
type Store struct {
	mu     sync.RWMutex
	helium ports.HeliumData
	fuel   ports.FuelData
}

var _ ports.Source = (*Store)(nil)

func New(p records.Payload) *Store {
	s := &Store{}
	s.Replace(p)
	return s
}

// NewFromFiles seeds the store from base. A payload.json in the JSON contract
// takes precedence; otherwise helium.csv and fuel.csv exports are read.
// Missing files leave the matching category empty.
func NewFromFiles(base string) *Store {
	if f, err := os.Open(filepath.Join(base, PayloadFile)); err == nil {
		defer f.Close()
		return New(records.DecodePayload(f))
	}

	p := records.Payload{}
	if f, err := os.Open(filepath.Join(base, HeliumFile)); err == nil {
		p.Helium = records.HeliumFills(records.ParseHeliumCSV(f))
		f.Close()
	}
	if f, err := os.Open(filepath.Join(base, FuelFile)); err == nil {
		p.Fuel.Propane, p.Fuel.Diesel = records.SplitFuel(records.ParseFuelCSV(f))
		f.Close()
	}
	return New(p)
}

// Replace swaps the stored data for p.
func (s *Store) Replace(p records.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.helium = ports.HeliumData{
		Fills:          append([]core.HeliumFill(nil), p.Helium...),
		ReportedTotals: append([]core.HeliumCellTotal(nil), p.HeliumFillTotals...),
	}
	s.fuel = ports.FuelData{
		Propane: append([]core.PropaneReplacement(nil), p.Fuel.Propane...),
		Diesel:  append([]core.DieselFill(nil), p.Fuel.Diesel...),
		Totals:  p.Fuel.PropaneTotals,
	}
}

func (s *Store) ReadHelium(_ context.Context) (ports.HeliumData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ports.HeliumData{
		Fills:          append([]core.HeliumFill(nil), s.helium.Fills...),
		ReportedTotals: append([]core.HeliumCellTotal(nil), s.helium.ReportedTotals...),
	}, nil
}

func (s *Store) ReadFuel(_ context.Context) (ports.FuelData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ports.FuelData{
		Propane: append([]core.PropaneReplacement(nil), s.fuel.Propane...),
		Diesel:  append([]core.DieselFill(nil), s.fuel.Diesel...),
		Totals:  s.fuel.Totals,
	}, nil
}
