// Package report renders backtest results as plain-text tables.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NA is printed for values that are undefined.
const NA = "-"

// FormatPct formats a fraction as a percentage with two decimals,
// e.g. 0.12345 -> "12.35%".
func FormatPct(v float64) string {
	if !finite(v) {
		return NA
	}
	return decimal.NewFromFloat(v).Shift(2).StringFixed(2) + "%"
}

// FormatSignedPct is FormatPct with an explicit "+" on gains.
func FormatSignedPct(v float64) string {
	s := FormatPct(v)
	if s != NA && v > 0 {
		return "+" + s
	}
	return s
}

// FormatRatio formats a ratio rounded to two decimals.
func FormatRatio(v float64) string {
	if !finite(v) {
		return NA
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatDate formats a calendar date as YYYY-MM-DD, or "-" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return NA
	}
	return t.Format(time.DateOnly)
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatSymbols joins up to max symbols, noting how many were left out.
func FormatSymbols(symbols []string, max int) string {
	if len(symbols) == 0 {
		return "empty"
	}
	if max <= 0 || len(symbols) <= max {
		return strings.Join(symbols, " ")
	}
	return fmt.Sprintf("%s +%d", strings.Join(symbols[:max], " "), len(symbols)-max)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
