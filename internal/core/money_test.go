package core

import (
	"errors"
	"math"
	"testing"
)

func TestParseRupiah(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"150000", 150000, true},
		{"1.500.000", 1500000, true},
		{"Rp 2.500", 2500, true},
		{"0", 0, true},
		{"999,5", 1000, true}, // half-up rounding
		{"999,49", 999, true},
		{" 12 ", 12, true},
		{"1.50", 0, false},
		{"1.5000", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1,2,3", 0, false},
		{"", 0, false},
		{"9223372036854775807", math.MaxInt64, true},
		{"9.223.372.036.854.775.807,4", math.MaxInt64, true},
		{"9223372036854775807,5", 0, false},
		{"9223372036854775808", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseRupiah(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %d (err=%v)", tc.in, got, err)
		}
	}
}

func TestFormatRupiah(t *testing.T) {
	cases := map[int64]string{
		0:             "Rp 0",
		950:           "Rp 950",
		1500000:       "Rp 1.500.000",
		-25000:        "-Rp 25.000",
		math.MaxInt64: "Rp 9.223.372.036.854.775.807",
		math.MinInt64: "-Rp 9.223.372.036.854.775.808",
	}
	for in, want := range cases {
		if got := FormatRupiah(in); got != want {
			t.Fatalf("FormatRupiah(%d) = %q, want %q", in, got, want)
		}
	}
}
