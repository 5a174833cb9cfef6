package records

import "logdash/internal/core"

// HeliumFills maps helium sheet rows onto fill records, in order.
func HeliumFills(rows []core.HeliumSheetRow) []core.HeliumFill {
	out := make([]core.HeliumFill, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Fill())
	}
	return out
}

// SplitFuel separates fuel sheet rows into propane swaps and diesel fills,
// each in input order. Rows of any other fuel type are ignored.
func SplitFuel(rows []core.FuelSheetRow) ([]core.PropaneReplacement, []core.DieselFill) {
	propane := make([]core.PropaneReplacement, 0)
	diesel := make([]core.DieselFill, 0)
	for _, r := range rows {
		switch {
		case r.IsPropane():
			propane = append(propane, core.PropaneReplacement{Machinery: r.Vehicle, Date: r.Date})
		case r.IsDiesel():
			diesel = append(diesel, core.DieselFill{Machinery: r.Vehicle, Date: r.Date, Gallons: r.Quantity})
		}
	}
	return propane, diesel
}
