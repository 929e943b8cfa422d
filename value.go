package linecalc

import (
	"math"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Render formats a value for display. Numbers are printed in their requested
// format followed by their unit, if any.
func (v Value) Render(s *Settings, units *UnitTable) string {
	if s == nil {
		s = DefaultSettings()
	}
	if units == nil {
		units = DefaultUnits
	}
	if v.Object != nil {
		return v.Object.Format(s)
	}
	r := formatNumber(v.Number, v.Format, s.Display.Precision)
	if v.Unit != nil {
		u := units.Format(v.Unit, s.Display.FullUnits, v.Number != 1)
		if u != "" {
			r += " " + u
		}
	}
	return r
}

// String renders the value with the default settings and units.
func (v Value) String() string {
	return v.Render(nil, nil)
}

// Format renders a value using the settings and units of the context.
func (ctx *Context) Format(v Value) string {
	return v.Render(ctx.settings, ctx.units)
}

func formatNumber(n float64, f Format, prec uint) string {
	switch f {
	case FormatHex:
		return formatRadix(n, 16, "0x", prec)
	case FormatBinary:
		return formatRadix(n, 2, "0b", prec)
	case FormatScientific:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return formatDecimal(n, prec)
		}
		return strconv.FormatFloat(round(n, prec), 'e', -1, 64)
	}
	return formatDecimal(n, prec)
}

// round rounds n to prec significant digits. Zero precision leaves n as is.
func round(n float64, prec uint) float64 {
	if prec == 0 {
		return n
	}
	x, _ := strconv.ParseFloat(strconv.FormatFloat(n, 'g', int(prec), 64), 64)
	return x
}

// formatRadix renders an integer in base 16 or 2 with a prefix. Non-integers
// fall back to decimal.
func formatRadix(n float64, base int, prefix string, prec uint) string {
	x, err := safecast.Convert[int64](n)
	if err != nil {
		return formatDecimal(n, prec)
	}
	sign := ""
	if x < 0 {
		sign = "-"
	}
	u := uint64(x)
	if x < 0 {
		u = -u
	}
	return sign + prefix + strings.ToUpper(strconv.FormatUint(u, base))
}

// formatDecimal renders n rounded to prec significant digits, or the shortest
// representation when prec is 0. Very large and very small magnitudes use
// exponent notation.
func formatDecimal(n float64, prec uint) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	}
	x := round(n, prec)
	if x == 0 {
		return "0"
	}
	if a := math.Abs(x); a >= 1e21 || a < 1e-7 {
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}
