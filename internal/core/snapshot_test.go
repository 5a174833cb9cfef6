package core

import (
	"testing"
	"time"
)

func TestAssemble(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	in := Inputs{
		Helium:             heliumExample(),
		ReportedCellTotals: []HeliumCellTotal{{Cell: "cellA", TotalSCF: 999, FillCount: 9}},
		Propane: []PropaneReplacement{
			{Machinery: "lift", Date: NewDate(2024, 2, 1)},
			{Machinery: "forklift", Date: NewDate(2024, 2, 3)},
			{Machinery: "forklift", Date: NewDate(2024, 3, 3)},
		},
		Diesel:        dieselExample(),
		PropaneTotals: PropaneTotals{Canisters: 3, GallonsPumped: 60},
	}
	s := Assemble(in, at)

	if !s.AssembledAt.Equal(at) {
		t.Fatalf("assembledAt = %v", s.AssembledAt)
	}
	if len(s.CellTotals) != 2 || s.CellTotals[0].TotalSCF != 150 {
		t.Fatalf("cell totals must be derived from fills, got %+v", s.CellTotals)
	}
	if s.ReportedCellTotals[0].TotalSCF != 999 {
		t.Fatalf("reported totals must be carried unchanged")
	}
	if s.HeliumByCell[0].Label != "cellB" || s.HeliumByCell[0].Value != 200 {
		t.Fatalf("helium by cell = %+v", s.HeliumByCell)
	}
	if s.PropaneByMachinery[0] != (RankedTotal{"forklift", 2}) {
		t.Fatalf("propane by machinery = %+v", s.PropaneByMachinery)
	}
	if s.DieselByMachinery[0] != (RankedTotal{"excavator", 30}) {
		t.Fatalf("diesel by machinery = %+v", s.DieselByMachinery)
	}
	if s.HeliumMonthly[11].Cumulative != 350 || s.DieselMonthly[11].Cumulative != 45 {
		t.Fatalf("monthly totals %v / %v", s.HeliumMonthly[11].Cumulative, s.DieselMonthly[11].Cumulative)
	}
	if s.Stats.PropaneCanisters != 3 || s.Stats.HeliumFills != 3 {
		t.Fatalf("stats = %+v", s.Stats)
	}
}

func TestAssembleDoesNotAliasInputs(t *testing.T) {
	in := Inputs{Helium: heliumExample()}
	s := Assemble(in, time.Now())
	in.Helium[0].SCF = 1
	if s.Helium[0].SCF != 100 {
		t.Fatalf("snapshot shares storage with its inputs")
	}
}

func TestAssembleEmpty(t *testing.T) {
	s := Assemble(Inputs{}, time.Time{})
	if len(s.HeliumMonthly) != 12 || len(s.DieselMonthly) != 12 {
		t.Fatalf("series must always have 12 points")
	}
	if s.Stats != (Stats{}) {
		t.Fatalf("expected zero stats, got %+v", s.Stats)
	}
	if len(s.HeliumByCell) != 0 || len(s.CellTotals) != 0 {
		t.Fatalf("expected empty derived lists")
	}
}

func TestAssembleIsReproducible(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	a := Assemble(Inputs{Helium: heliumExample(), Diesel: dieselExample()}, at)
	b := Assemble(a.Inputs(), at)
	for i := range a.HeliumMonthly {
		if a.HeliumMonthly[i] != b.HeliumMonthly[i] {
			t.Fatalf("month %d differs", i)
		}
	}
	if a.Stats != b.Stats {
		t.Fatalf("stats differ")
	}
}

func TestTopAndRecent(t *testing.T) {
	totals := []RankedTotal{{"a", 3}, {"b", 2}, {"c", 1}}
	if got := Top(totals, 2); len(got) != 2 || got[1].Label != "b" {
		t.Fatalf("top 2 = %v", got)
	}
	if got := Top(totals, 10); len(got) != 3 {
		t.Fatalf("top 10 = %v", got)
	}

	items := []int{1, 2, 3, 4, 5}
	got := Recent(items, 3)
	if len(got) != 3 || got[0] != 5 || got[2] != 3 {
		t.Fatalf("recent = %v", got)
	}
	if got := Recent(items, 20); len(got) != 5 || got[0] != 5 {
		t.Fatalf("recent all = %v", got)
	}
}
