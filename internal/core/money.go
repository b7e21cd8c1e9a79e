// Package core provides money parsing and handling utilities.
//
// Amounts are whole rupiah held in int64. Input follows Indonesian notation:
// dots group thousands and a comma starts the decimal part.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// ParseRupiah converts a user supplied amount to whole rupiah.
//
// Zero is allowed since a month may have no income. The decimal part is
// rounded half-up. Returns ErrInvalidAmount for empty, negative or malformed input.
//
// Examples:
//
//	ParseRupiah("150000")    -> 150000, nil
//	ParseRupiah("1.500.000") -> 1500000, nil
//	ParseRupiah("Rp 2.500")  -> 2500, nil
//	ParseRupiah("999,5")     -> 1000, nil
func ParseRupiah(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Rp")
	s = strings.TrimPrefix(s, "rp")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if strings.Contains(intPart, ".") {
		groups := strings.Split(intPart, ".")
		if groups[0] == "" || len(groups[0]) > 3 {
			return 0, ErrInvalidAmount
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return 0, ErrInvalidAmount
			}
		}
		intPart = strings.Join(groups, "")
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if fracPart != "" && fracPart[0] >= '5' {
		if v == math.MaxInt64 {
			return 0, ErrInvalidAmount
		}
		v++
	}
	return v, nil
}

// FormatRupiah renders an amount as "Rp 1.500.000".
func FormatRupiah(v int64) string {
	digits := strings.ReplaceAll(humanize.Comma(v), ",", ".")
	if rest, ok := strings.CutPrefix(digits, "-"); ok {
		return "-Rp " + rest
	}
	return "Rp " + digits
}
