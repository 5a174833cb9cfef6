package core

import (
	"encoding/json"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in    string
		year  int
		month int
		day   int
	}{
		{"2024-01-15", 2024, 1, 15},
		{"1/5/2024", 2024, 1, 5},
		{"12/31/2023", 2023, 12, 31},
		{"2024/03/07", 2024, 3, 7},
		{"2024-02-10T08:30:00Z", 2024, 2, 10},
		{"March 4, 2024", 2024, 3, 4},
		{"Mar 4, 2024", 2024, 3, 4},
		{" 2024-06-01 ", 2024, 6, 1},
		{"not a date", 0, 0, 0},
		{"", 0, 0, 0},
	}
	for _, tc := range cases {
		d := ParseDate(tc.in)
		if d.Year() != tc.year || d.Month() != tc.month {
			t.Fatalf("%q expected %d-%d, got %d-%d", tc.in, tc.year, tc.month, d.Year(), d.Month())
		}
		if tc.day != 0 && d.Day() != tc.day {
			t.Fatalf("%q expected day %d, got %d", tc.in, tc.day, d.Day())
		}
		if d.Valid() != (tc.month != 0) {
			t.Fatalf("%q validity mismatch", tc.in)
		}
	}
}

func TestDateKeepsSourceText(t *testing.T) {
	d := ParseDate("1/5/2024")
	if d.String() != "1/5/2024" {
		t.Fatalf("expected source text, got %q", d.String())
	}
	bad := ParseDate("soon")
	if bad.String() != "soon" || bad.Month() != 0 {
		t.Fatalf("unparsed date should keep text and have no month: %q %d", bad.String(), bad.Month())
	}
	if NewDate(2024, 3, 1).String() != "2024-03-01" {
		t.Fatalf("NewDate text = %q", NewDate(2024, 3, 1).String())
	}
}

func TestDateJSON(t *testing.T) {
	var f HeliumFill
	if err := json.Unmarshal([]byte(`{"fillDate":"2/10/2024","cell":"A","scf":5}`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.FillDate.Month() != 2 || f.FillDate.String() != "2/10/2024" {
		t.Fatalf("unexpected date %v", f.FillDate)
	}
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"fillDate":"2/10/2024","cell":"A","scf":5}`
	if string(b) != want {
		t.Fatalf("expected %s, got %s", want, b)
	}

	// Non-string dates degrade instead of failing the record.
	if err := json.Unmarshal([]byte(`{"fillDate":20240210,"cell":"A","scf":5}`), &f); err != nil {
		t.Fatalf("unmarshal numeric date: %v", err)
	}
	if f.FillDate.Valid() {
		t.Fatalf("numeric date should not parse")
	}
}

func TestFuelRowKinds(t *testing.T) {
	cases := []struct {
		fuelType string
		propane  bool
		diesel   bool
	}{
		{"Propane", true, false},
		{"propane canister", true, false},
		{"Diesel", false, true},
		{"", false, true},
		{"  ", false, true},
		{"Gasoline", false, false},
	}
	for _, tc := range cases {
		r := FuelSheetRow{FuelType: tc.fuelType}
		if r.IsPropane() != tc.propane || r.IsDiesel() != tc.diesel {
			t.Fatalf("%q: propane=%v diesel=%v", tc.fuelType, r.IsPropane(), r.IsDiesel())
		}
	}
}

func TestHeliumRowFill(t *testing.T) {
	r := HeliumSheetRow{Date: NewDate(2024, 1, 15), Location: "cellA", Quantity: 100, Cost: 50}
	f := r.Fill()
	if f.Cell != "cellA" || f.SCF != 100 || f.FillDate.Month() != 1 {
		t.Fatalf("unexpected fill %+v", f)
	}
}
