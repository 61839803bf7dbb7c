// Package priceutil converts wire-level numeric prices into the
// engine's decimal representation and back.
package priceutil

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places prices are quantized to.
const Scale = 2

// FromFloat converts an adapter-supplied float64 price into a
// quantized decimal.Decimal. It rejects NaN and infinities before
// they ever reach the engine, since the engine treats price as an
// opaque totally-ordered value and has no way to reject them itself.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("priceutil: price %v is not a finite number", f)
	}
	return decimal.NewFromFloat(f).Round(Scale), nil
}

// FromString parses a decimal string price, quantized to Scale.
func FromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("priceutil: %w", err)
	}
	return d.Round(Scale), nil
}

// ToFloat converts a decimal price back to float64 for wire formats
// that carry prices as JSON numbers (the line socket and websocket
// protocols).
func ToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
