// Package core holds the domain types and the pure pieces of the engine:
// money handling, template matching and statistics aggregation.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToMinor converts a decimal string to minor units with half-up
// rounding on the third decimal place. It accepts both dot (12.34) and comma
// (12,34) separators. Only positive amounts are accepted; direction is
// decided separately by the income/expense choice.
func ParseDecimalToMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrZeroAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrZeroAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrZeroAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrZeroAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrZeroAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrZeroAmount
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	minor := iv*100 + frac
	if minor <= 0 {
		return 0, ErrZeroAmount
	}
	return minor, nil
}

// FormatMinor renders signed minor units as a decimal string for display,
// e.g. -952 -> "-9.52". Calculations always stay in minor units.
func FormatMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// FormatMinorSigned is FormatMinor with an explicit plus for positive
// values, used in statistics breakdowns.
func FormatMinorSigned(minor int64) string {
	if minor > 0 {
		return "+" + FormatMinor(minor)
	}
	return FormatMinor(minor)
}
