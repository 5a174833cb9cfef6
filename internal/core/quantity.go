// Package core provides the dashboard data model and the pure derivations
// built on it.
//
// This file contains the tolerant numeric parsing used for every quantity
// read from a spreadsheet cell.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseQuantity converts a spreadsheet cell to a non-negative quantity.
//
// Surrounding whitespace, a leading plus sign and thousands separators are
// accepted. Anything that does not parse, as well as NaN, infinities and
// negative values, yields 0 so a single bad cell never discards its record.
//
// Examples:
//   ParseQuantity("100")     -> 100
//   ParseQuantity(" 1,250 ") -> 1250
//   ParseQuantity("12.5")    -> 12.5
//   ParseQuantity("abc")     -> 0
//   ParseQuantity("-4")      -> 0
func ParseQuantity(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.TrimPrefix(s, "+")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return Sanitize(v)
}

// Sanitize clamps an already-numeric value to the non-negative finite range.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
