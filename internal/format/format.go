// Package format renders raw metric values as display strings for the
// dashboard: currency amounts, trading volumes and client counts, with an
// exact/abbreviated/smart mode switch shared by every view.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Mode selects how numeric values are rendered.
type Mode int

const (
	// Abbreviated rounds to the nearest integer and compacts with K/M suffixes.
	Abbreviated Mode = iota
	// Exact shows the full value: no decimals for whole numbers, two otherwise.
	Exact
	// Smart abbreviates only at one million and above (M/B), exact below.
	Smart
)

var printer = message.NewPrinter(language.English)

// Currency formats a USD amount according to mode.
//
// Boundary values resolve to the next tier: exactly 1,000,000 renders as
// "$1.0M", not "$1000.0K".
func Currency(amount float64, mode Mode) string {
	neg := ""
	if amount < 0 {
		neg = "-"
	}
	abs := math.Abs(amount)

	switch mode {
	case Abbreviated:
		r := math.Round(abs)
		if r == 0 {
			neg = ""
		}
		switch {
		case r >= 1_000_000:
			return neg + printer.Sprintf("$%.1fM", r/1_000_000)
		case r >= 1_000:
			return neg + printer.Sprintf("$%.1fK", r/1_000)
		default:
			return neg + printer.Sprintf("$%d", int64(r))
		}
	case Smart:
		switch {
		case abs >= 1_000_000_000:
			return neg + printer.Sprintf("$%.1fB", abs/1_000_000_000)
		case abs >= 1_000_000:
			return neg + printer.Sprintf("$%.1fM", abs/1_000_000)
		default:
			return exactCurrency(neg, abs)
		}
	default:
		return exactCurrency(neg, abs)
	}
}

func exactCurrency(neg string, abs float64) string {
	if isWhole(abs) {
		return neg + printer.Sprintf("$%d", int64(abs))
	}
	return neg + printer.Sprintf("$%.2f", abs)
}

// Volume formats a USD trading volume, abbreviating through trillions.
// Below 1,000 it falls back to plain exact currency.
func Volume(amount float64) string {
	neg := ""
	if amount < 0 {
		neg = "-"
	}
	abs := math.Abs(amount)

	switch {
	case abs >= 1_000_000_000_000:
		return neg + printer.Sprintf("$%.2fT", abs/1_000_000_000_000)
	case abs >= 1_000_000_000:
		return neg + printer.Sprintf("$%.2fB", abs/1_000_000_000)
	case abs >= 1_000_000:
		return neg + printer.Sprintf("$%.1fM", abs/1_000_000)
	case abs >= 1_000:
		return neg + printer.Sprintf("$%.1fK", abs/1_000)
	default:
		return exactCurrency(neg, abs)
	}
}

// Count formats a client or partner count. It mirrors Currency without the
// symbol, and preserves the sign of negative rounded values: -1500 renders
// as "-1.5K", never "1.5K".
func Count(value float64, mode Mode) string {
	neg := ""
	if value < 0 {
		neg = "-"
	}
	abs := math.Abs(value)

	if mode == Abbreviated {
		r := math.Round(abs)
		if r == 0 {
			neg = ""
		}
		switch {
		case r >= 1_000_000:
			return neg + printer.Sprintf("%.1fM", r/1_000_000)
		case r >= 1_000:
			return neg + printer.Sprintf("%.1fK", r/1_000)
		default:
			return neg + printer.Sprintf("%d", int64(r))
		}
	}

	if isWhole(abs) {
		return neg + printer.Sprintf("%d", int64(abs))
	}
	return neg + printer.Sprintf("%.2f", abs)
}

func isWhole(v float64) bool {
	return v == math.Trunc(v)
}
