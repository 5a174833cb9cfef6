package records

import "testing"

func TestParseHeliumRows(t *testing.T) {
	values := [][]any{
		{"Date", "Location", "Quantity", "Cost"},
		{"1/15/2024", "cellA", 100.0, "25"},
		{},
		{"", nil, ""},
		{"2/10/2024", "cellB", "n/a"},
	}
	rows := ParseHeliumRows(values)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Quantity != 100 || rows[0].Cost != 25 || rows[0].Date.Month() != 1 {
		t.Fatalf("unexpected row %+v", rows[0])
	}
	if rows[1].Quantity != 0 || rows[1].Location != "cellB" {
		t.Fatalf("unexpected row %+v", rows[1])
	}
}

func TestParseFuelRowsHeaderOnly(t *testing.T) {
	if rows := ParseFuelRows([][]any{{"date", "vehicle"}}); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
	if rows := ParseFuelRows(nil); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestSplitFuel(t *testing.T) {
	rows := ParseFuelRows([][]any{
		{"date", "vehicle", "fuelType", "quantity"},
		{"2024-03-01", "excavator", "Diesel", 20},
		{"2024-03-02", "forklift", "PROPANE", 1},
		{"2024-03-03", "truck", "Gasoline", 30},
		{"2024-03-05", "loader", "", 15},
	})
	propane, diesel := SplitFuel(rows)
	if len(propane) != 1 || propane[0].Machinery != "forklift" || propane[0].Date.Day() != 2 {
		t.Fatalf("unexpected propane %+v", propane)
	}
	if len(diesel) != 2 || diesel[0].Machinery != "excavator" || diesel[1].Machinery != "loader" || diesel[1].Gallons != 15 {
		t.Fatalf("unexpected diesel %+v", diesel)
	}
}

func TestHeliumFills(t *testing.T) {
	fills := HeliumFills(ParseHeliumRows([][]any{
		{"h"},
		{"2024-01-15", "cellA", "100"},
	}))
	if len(fills) != 1 || fills[0].Cell != "cellA" || fills[0].SCF != 100 {
		t.Fatalf("unexpected fills %+v", fills)
	}
}
