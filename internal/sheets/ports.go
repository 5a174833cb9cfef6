package sheets

import (
	"context"

	"logdash/internal/core"
)

type (
	// HeliumData is what a source returns for the helium category.
	HeliumData struct {
		Fills []core.HeliumFill
		// ReportedTotals are cell totals computed by the source itself, if any.
		ReportedTotals []core.HeliumCellTotal
	}

	// FuelData is what a source returns for the fuel category.
	FuelData struct {
		Propane []core.PropaneReplacement
		Diesel  []core.DieselFill
		Totals  core.PropaneTotals
	}
)

// Ports for inbound data adapters.
type (
	HeliumReader interface {
		ReadHelium(ctx context.Context) (HeliumData, error)
	}

	FuelReader interface {
		ReadFuel(ctx context.Context) (FuelData, error)
	}

	// Source serves both categories.
	Source interface {
		HeliumReader
		FuelReader
	}
)
