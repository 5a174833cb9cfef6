package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"logdash/internal/core"
)

type (
	// Payload is the JSON contract of the sheets endpoint.
	Payload struct {
		Helium           []core.HeliumFill      `json:"helium"`
		HeliumFillTotals []core.HeliumCellTotal `json:"heliumFillTotals"`
		Fuel             FuelPayload            `json:"fuel"`
	}

	FuelPayload struct {
		Propane       []core.PropaneReplacement `json:"propane"`
		Diesel        []core.DieselFill         `json:"diesel"`
		PropaneTotals core.PropaneTotals        `json:"propaneTotals"`
	}

	// number accepts a JSON number or a numeric string. Anything else
	// decodes to zero.
	number float64

	// text accepts a JSON string or a bare scalar such as a numeric cell id.
	text string

	wirePayload struct {
		Helium           []json.RawMessage `json:"helium"`
		HeliumFillTotals []json.RawMessage `json:"heliumFillTotals"`
		Fuel             struct {
			Propane       []json.RawMessage `json:"propane"`
			Diesel        []json.RawMessage `json:"diesel"`
			PropaneTotals json.RawMessage   `json:"propaneTotals"`
		} `json:"fuel"`
	}

	wireHelium struct {
		FillDate core.Date `json:"fillDate"`
		Cell     text      `json:"cell"`
		SCF      number    `json:"scf"`
	}

	wireCellTotal struct {
		Cell      text   `json:"cell"`
		TotalSCF  number `json:"totalScf"`
		FillCount number `json:"fillCount"`
	}

	wirePropane struct {
		Machinery text      `json:"machinery"`
		Date      core.Date `json:"date"`
	}

	wireDiesel struct {
		Machinery text      `json:"machinery"`
		Date      core.Date `json:"date"`
		Gallons   number    `json:"gallons"`
	}

	wirePropaneTotals struct {
		Canisters     number `json:"canisters"`
		GallonsPumped number `json:"gallonsPumped"`
	}
)

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
		*n = number(core.ParseQuantity(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*n = 0
		return nil
	}
	*n = number(core.Sanitize(f))
	return nil
}

func (t *text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(strings.TrimSpace(s))
		return nil
	}
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || len(b) == 0 || b[0] == '{' || b[0] == '[' {
		*t = ""
		return nil
	}
	*t = text(b)
	return nil
}

// Decode reads the JSON contract. Missing keys yield empty lists and zero
// totals; list entries that are null or not objects are dropped. An error is
// returned only when the body is not valid JSON.
func Decode(r io.Reader) (Payload, error) {
	var w wirePayload
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		// A key of the wrong shape only costs that key.
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return emptyPayload(), fmt.Errorf("decode sheets payload: %w", err)
		}
	}

	p := emptyPayload()
	for _, raw := range w.Helium {
		var h wireHelium
		if !entry(raw, &h) {
			continue
		}
		p.Helium = append(p.Helium, core.HeliumFill{FillDate: h.FillDate, Cell: string(h.Cell), SCF: float64(h.SCF)})
	}
	for _, raw := range w.HeliumFillTotals {
		var c wireCellTotal
		if !entry(raw, &c) {
			continue
		}
		p.HeliumFillTotals = append(p.HeliumFillTotals, core.HeliumCellTotal{
			Cell:      string(c.Cell),
			TotalSCF:  float64(c.TotalSCF),
			FillCount: int(math.Round(float64(c.FillCount))),
		})
	}
	for _, raw := range w.Fuel.Propane {
		var pr wirePropane
		if !entry(raw, &pr) {
			continue
		}
		p.Fuel.Propane = append(p.Fuel.Propane, core.PropaneReplacement{Machinery: string(pr.Machinery), Date: pr.Date})
	}
	for _, raw := range w.Fuel.Diesel {
		var d wireDiesel
		if !entry(raw, &d) {
			continue
		}
		p.Fuel.Diesel = append(p.Fuel.Diesel, core.DieselFill{Machinery: string(d.Machinery), Date: d.Date, Gallons: float64(d.Gallons)})
	}
	if len(w.Fuel.PropaneTotals) > 0 {
		var t wirePropaneTotals
		if json.Unmarshal(w.Fuel.PropaneTotals, &t) == nil {
			p.Fuel.PropaneTotals = core.PropaneTotals{Canisters: float64(t.Canisters), GallonsPumped: float64(t.GallonsPumped)}
		}
	}
	return p, nil
}

// entry decodes one list element into v, rejecting null.
func entry(raw json.RawMessage, v any) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// DecodePayload is Decode for callers that treat an unreadable payload as
// no data.
func DecodePayload(r io.Reader) Payload {
	p, _ := Decode(r)
	return p
}

// Inputs converts the payload into the record collections of one refresh.
func (p Payload) Inputs() core.Inputs {
	return core.Inputs{
		Helium:             p.Helium,
		ReportedCellTotals: p.HeliumFillTotals,
		Propane:            p.Fuel.Propane,
		Diesel:             p.Fuel.Diesel,
		PropaneTotals:      p.Fuel.PropaneTotals,
	}
}

// FromSnapshot rebuilds the JSON contract from an assembled snapshot.
// Cell totals are the source-reported ones when present, else the derived
// ones.
func FromSnapshot(s core.Snapshot) Payload {
	totals := s.ReportedCellTotals
	if len(totals) == 0 {
		totals = s.CellTotals
	}
	p := emptyPayload()
	p.Helium = append(p.Helium, s.Helium...)
	p.HeliumFillTotals = append(p.HeliumFillTotals, totals...)
	p.Fuel.Propane = append(p.Fuel.Propane, s.Propane...)
	p.Fuel.Diesel = append(p.Fuel.Diesel, s.Diesel...)
	p.Fuel.PropaneTotals = s.PropaneTotals
	return p
}

func emptyPayload() Payload {
	return Payload{
		Helium:           []core.HeliumFill{},
		HeliumFillTotals: []core.HeliumCellTotal{},
		Fuel: FuelPayload{
			Propane: []core.PropaneReplacement{},
			Diesel:  []core.DieselFill{},
		},
	}
}
