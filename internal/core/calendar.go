package core

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownMonth = errors.New("unknown month")

var monthNames = [12]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

var monthIndex = func() map[string]int {
	m := make(map[string]int, len(monthNames))
	for i, name := range monthNames {
		m[strings.ToLower(name)] = i + 1
	}
	return m
}()

// MonthIndex maps an Indonesian month name to 1-12. Matching ignores case and
// surrounding whitespace.
func MonthIndex(name string) (int, error) {
	if i, ok := monthIndex[strings.ToLower(strings.TrimSpace(name))]; ok {
		return i, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMonth, name)
}

// MonthName is the inverse of MonthIndex.
func MonthName(i int) (string, error) {
	if i < 1 || i > 12 {
		return "", fmt.Errorf("%w: %d", ErrUnknownMonth, i)
	}
	return monthNames[i-1], nil
}

// CanonicalMonth returns the table spelling of name.
func CanonicalMonth(name string) (string, error) {
	i, err := MonthIndex(name)
	if err != nil {
		return "", err
	}
	return monthNames[i-1], nil
}

// Months returns the month names in calendar order.
func Months() []string {
	out := make([]string, len(monthNames))
	copy(out, monthNames[:])
	return out
}

// Quarter returns the 1-4 quarter containing month index m.
func Quarter(m int) int {
	return (m-1)/3 + 1
}
