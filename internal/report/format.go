package report

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Locale selects number formatting for text exports.
type Locale string

const (
	LocalePlain Locale = ""
	// LocaleES writes 1.234,5 (dot thousands, comma decimals).
	LocaleES Locale = "es"
)

// round rounds half away from zero without binary float artifacts.
func round(v float64, decimals int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(decimals).Float64()
	return f
}

// formatNumber renders v for CSV cells. Trailing zeros are dropped.
func formatNumber(v float64, decimals int32, locale Locale) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return ""
	}
	s := decimal.NewFromFloat(v).Round(decimals).String()
	if locale == LocaleES {
		return localize(s)
	}
	return s
}

// localize rewrites a plain decimal string with dot thousands separators and
// a comma decimal mark.
func localize(plain string) string {
	neg := strings.HasPrefix(plain, "-")
	plain = strings.TrimPrefix(plain, "-")

	intPart, frac, hasFrac := strings.Cut(plain, ".")
	if len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}

	out := intPart
	if hasFrac {
		out += "," + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
