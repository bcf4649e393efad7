// Package utils provides shared formatting and calendar helpers.
package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Placeholder is shown for absent or non-numeric values.
const Placeholder = "-"

// FormatRatio renders a fractional return as a percentage with the given
// number of decimals, e.g. 0.0125 -> "1.25%". nil and NaN render as "-".
func FormatRatio(r *float64, places int32) string {
	if r == nil {
		return Placeholder
	}
	return RatioPercent(*r, places)
}

// RatioPercent is FormatRatio for a present value.
func RatioPercent(r float64, places int32) string {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Placeholder
	}
	return decimal.NewFromFloat(r).Shift(2).StringFixed(places) + "%"
}

// FormatPlain renders a number the shortest way that round-trips,
// without grouping: 71200 -> "71200", 0.5 -> "0.5".
func FormatPlain(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatOptional is FormatPlain for a nullable number.
func FormatOptional(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return FormatPlain(*v)
}

// FormatNumber groups thousands and keeps at most three decimals, the way
// Korean locale number formatting does: 1234567.891 -> "1,234,567.891".
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return FormatPlain(v)
	}
	d := decimal.NewFromFloat(v).Round(3)
	negative := d.IsNegative()
	if negative {
		d = d.Neg()
	}

	parts := strings.SplitN(d.String(), ".", 2)
	out := groupThousands(parts[0])
	if len(parts) == 2 {
		out += "." + parts[1]
	}
	if negative {
		out = "-" + out
	}
	return out
}

// FormatOptionalNumber is FormatNumber for a nullable number.
func FormatOptionalNumber(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return FormatNumber(*v)
}

// FormatWon renders a price in Korean won. Whole amounts use the currency
// formatter ("₩71,200"); fractional ones fall back to FormatNumber.
func FormatWon(v *float64) string {
	if v == nil {
		return Placeholder
	}
	if *v != math.Trunc(*v) || math.Abs(*v) > math.MaxInt64/2 {
		return FormatNumber(*v)
	}
	return money.New(int64(*v), money.KRW).Display()
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// YesDash renders a flag as "Y" or "-".
func YesDash(b bool) string {
	if b {
		return "Y"
	}
	return Placeholder
}
