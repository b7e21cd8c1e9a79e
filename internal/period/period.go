// Package period buckets monthly financial entries into monthly, quarterly or
// yearly series for display.
//
// Aggregate is pure: it never mutates its input and performs no I/O, so it can
// be called from request handlers and workers alike.
package period

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"asrama/internal/core"
)

type Granularity string

const (
	Monthly   Granularity = "monthly"
	Quarterly Granularity = "quarterly"
	Yearly    Granularity = "yearly"
)

var (
	ErrUnknownMonth       = core.ErrUnknownMonth
	ErrNegativeAmount     = errors.New("negative amount")
	ErrUnknownGranularity = errors.New("unknown granularity")
)

// Entry is one month's amounts as stored by the backend.
type Entry struct {
	Month    string
	Year     int
	Incoming int64
	Outgoing int64
}

// Bucket is one point of an aggregated series. Index is the month (1-12) for
// monthly series, the quarter (1-4) for quarterly ones and 0 for yearly ones.
type Bucket struct {
	Label    string `json:"label"`
	Year     int    `json:"year"`
	Index    int    `json:"index"`
	Incoming int64  `json:"incoming"`
	Outgoing int64  `json:"outgoing"`
}

func (b Bucket) Balance() int64 {
	return b.Incoming - b.Outgoing
}

// ParseGranularity accepts the English names and their Indonesian equivalents.
// An empty string selects Monthly.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monthly", "bulanan":
		return Monthly, nil
	case "quarterly", "triwulan":
		return Quarterly, nil
	case "yearly", "tahunan":
		return Yearly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
}

func (g Granularity) Valid() bool {
	return g == Monthly || g == Quarterly || g == Yearly
}

// Label is the Indonesian caption used on the dashboard selector.
func (g Granularity) Label() string {
	switch g {
	case Quarterly:
		return "Triwulan"
	case Yearly:
		return "Tahunan"
	default:
		return "Bulanan"
	}
}

func FromRecords(records []core.FinancialRecord) []Entry {
	out := make([]Entry, len(records))
	for i, r := range records {
		out[i] = Entry{Month: r.Month, Year: r.Year, Incoming: r.Incoming, Outgoing: r.Outgoing}
	}
	return out
}

type key struct {
	year  int
	index int
}

// Aggregate groups entries by g and returns buckets ordered ascending by
// (Year, Index). Totals are conserved across every granularity and no two
// buckets share a key. An unrecognised month name fails the whole call.
func Aggregate(entries []Entry, g Granularity) ([]Bucket, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, string(g))
	}

	acc := make(map[key]*Bucket, len(entries))
	for i, e := range entries {
		month, err := core.MonthIndex(e.Month)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if e.Incoming < 0 || e.Outgoing < 0 {
			return nil, fmt.Errorf("entry %d: %w", i, ErrNegativeAmount)
		}

		k := key{year: e.Year}
		var label string
		switch g {
		case Monthly:
			k.index = month
			label, _ = core.MonthName(month)
		case Quarterly:
			k.index = core.Quarter(month)
			label = "Q" + strconv.Itoa(k.index)
		case Yearly:
			label = strconv.Itoa(e.Year)
		}

		b, ok := acc[k]
		if !ok {
			b = &Bucket{Label: label, Year: k.year, Index: k.index}
			acc[k] = b
		}
		b.Incoming += e.Incoming
		b.Outgoing += e.Outgoing
	}

	out := make([]Bucket, 0, len(acc))
	for _, b := range acc {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// FilterYear keeps the buckets of a single year. A zero year keeps everything.
func FilterYear(buckets []Bucket, year int) []Bucket {
	if year == 0 {
		return buckets
	}
	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Year == year {
			out = append(out, b)
		}
	}
	return out
}

// Years lists the distinct years present in entries, newest first.
func Years(entries []Entry) []int {
	seen := make(map[int]struct{})
	years := make([]int, 0)
	for _, e := range entries {
		if _, ok := seen[e.Year]; ok {
			continue
		}
		seen[e.Year] = struct{}{}
		years = append(years, e.Year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// Totals sums every bucket.
func Totals(buckets []Bucket) core.Totals {
	var t core.Totals
	for _, b := range buckets {
		t.Incoming += b.Incoming
		t.Outgoing += b.Outgoing
	}
	return t
}

// Series is the chart-ready form of an aggregated series.
type Series struct {
	Granularity Granularity `json:"granularity"`
	Year        int         `json:"year,omitempty"`
	Labels      []string    `json:"labels"`
	Incoming    []int64     `json:"incoming"`
	Outgoing    []int64     `json:"outgoing"`
	Balance     []int64     `json:"balance"`
}

// ToSeries flattens buckets into parallel slices. When a monthly or quarterly
// series spans several years the labels carry the year so they stay distinct.
func ToSeries(g Granularity, year int, buckets []Bucket) Series {
	s := Series{
		Granularity: g,
		Year:        year,
		Labels:      make([]string, len(buckets)),
		Incoming:    make([]int64, len(buckets)),
		Outgoing:    make([]int64, len(buckets)),
		Balance:     make([]int64, len(buckets)),
	}
	multiYear := g != Yearly && len(buckets) > 0 && buckets[0].Year != buckets[len(buckets)-1].Year
	for i, b := range buckets {
		s.Labels[i] = b.Label
		if multiYear {
			s.Labels[i] = b.Label + " " + strconv.Itoa(b.Year)
		}
		s.Incoming[i] = b.Incoming
		s.Outgoing[i] = b.Outgoing
		s.Balance[i] = b.Balance()
	}
	return s
}
