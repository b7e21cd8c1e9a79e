package period

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asrama/internal/core"
)

func sampleEntries() []Entry {
	return []Entry{
		{Month: "April", Year: 2024, Incoming: 0, Outgoing: 20},
		{Month: "Januari", Year: 2024, Incoming: 100, Outgoing: 0},
		{Month: "Desember", Year: 2023, Incoming: 70, Outgoing: 30},
		{Month: "Maret", Year: 2024, Incoming: 50, Outgoing: 0},
		{Month: "november", Year: 2024, Incoming: 5, Outgoing: 15},
	}
}

func TestAggregate(t *testing.T) {
	t.Run("quarterly groups by quarter and year", func(t *testing.T) {
		in := []Entry{
			{Month: "Januari", Year: 2024, Incoming: 100},
			{Month: "Maret", Year: 2024, Incoming: 50},
			{Month: "April", Year: 2024, Outgoing: 20},
		}

		got, err := Aggregate(in, Quarterly)

		require.NoError(t, err)
		assert.Equal(t, []Bucket{
			{Label: "Q1", Year: 2024, Index: 1, Incoming: 150},
			{Label: "Q2", Year: 2024, Index: 2, Outgoing: 20},
		}, got)
	})

	t.Run("monthly orders by year then month", func(t *testing.T) {
		got, err := Aggregate(sampleEntries(), Monthly)

		require.NoError(t, err)
		labels := make([]string, len(got))
		for i, b := range got {
			labels[i] = b.Label
		}
		assert.Equal(t, []string{"Desember", "Januari", "Maret", "April", "November"}, labels)
		assert.Equal(t, 2023, got[0].Year)
	})

	t.Run("monthly merges duplicate months", func(t *testing.T) {
		in := []Entry{
			{Month: "Mei", Year: 2024, Incoming: 10},
			{Month: "MEI", Year: 2024, Incoming: 5, Outgoing: 1},
		}

		got, err := Aggregate(in, Monthly)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, Bucket{Label: "Mei", Year: 2024, Index: 5, Incoming: 15, Outgoing: 1}, got[0])
	})

	t.Run("yearly emits one bucket per year", func(t *testing.T) {
		got, err := Aggregate(sampleEntries(), Yearly)

		require.NoError(t, err)
		assert.Equal(t, []Bucket{
			{Label: "2023", Year: 2023, Incoming: 70, Outgoing: 30},
			{Label: "2024", Year: 2024, Incoming: 155, Outgoing: 35},
		}, got)
	})

	t.Run("unknown month is rejected", func(t *testing.T) {
		in := []Entry{{Month: "Aprilo", Year: 2024, Incoming: 10}}

		_, err := Aggregate(in, Monthly)

		require.ErrorIs(t, err, ErrUnknownMonth)
	})

	t.Run("negative amount is rejected", func(t *testing.T) {
		_, err := Aggregate([]Entry{{Month: "Mei", Year: 2024, Outgoing: -1}}, Yearly)

		require.ErrorIs(t, err, ErrNegativeAmount)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		got, err := Aggregate(nil, Quarterly)

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid granularity", func(t *testing.T) {
		_, err := Aggregate(sampleEntries(), Granularity("weekly"))

		require.ErrorIs(t, err, ErrUnknownGranularity)
	})

	t.Run("input is not mutated", func(t *testing.T) {
		in := sampleEntries()
		before := append([]Entry(nil), in...)

		_, err := Aggregate(in, Quarterly)

		require.NoError(t, err)
		assert.Equal(t, before, in)
	})
}

func TestAggregateProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	months := core.Months()

	for round := 0; round < 50; round++ {
		entries := make([]Entry, rng.Intn(40))
		var sum core.Totals
		for i := range entries {
			entries[i] = Entry{
				Month:    months[rng.Intn(12)],
				Year:     2020 + rng.Intn(4),
				Incoming: rng.Int63n(1_000_000),
				Outgoing: rng.Int63n(1_000_000),
			}
			sum.Incoming += entries[i].Incoming
			sum.Outgoing += entries[i].Outgoing
		}

		for _, g := range []Granularity{Monthly, Quarterly, Yearly} {
			buckets, err := Aggregate(entries, g)
			require.NoError(t, err)

			assert.Equal(t, sum, Totals(buckets), "totals conserved for %s", g)

			for i := 1; i < len(buckets); i++ {
				prev, cur := buckets[i-1], buckets[i]
				strictlyAfter := cur.Year > prev.Year || (cur.Year == prev.Year && cur.Index > prev.Index)
				require.True(t, strictlyAfter, "%s bucket %d not strictly after %d", g, i, i-1)
			}

			for _, b := range buckets {
				switch g {
				case Quarterly:
					assert.True(t, b.Index >= 1 && b.Index <= 4)
				case Yearly:
					assert.Zero(t, b.Index)
				}
			}
		}

		yearly, err := Aggregate(entries, Yearly)
		require.NoError(t, err)
		assert.Len(t, yearly, len(Years(entries)))
	}
}

func TestQuarterMapping(t *testing.T) {
	for m, name := range core.Months() {
		buckets, err := Aggregate([]Entry{{Month: name, Year: 2024, Incoming: 1}}, Quarterly)
		require.NoError(t, err)
		require.Len(t, buckets, 1)
		assert.Equal(t, m/3+1, buckets[0].Index, name)
	}
}

func TestParseGranularity(t *testing.T) {
	cases := map[string]Granularity{
		"":          Monthly,
		"bulanan":   Monthly,
		"Quarterly": Quarterly,
		"triwulan":  Quarterly,
		"tahunan":   Yearly,
	}
	for in, want := range cases {
		got, err := ParseGranularity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseGranularity("mingguan")
	assert.ErrorIs(t, err, ErrUnknownGranularity)
}

func TestToSeries(t *testing.T) {
	buckets, err := Aggregate(sampleEntries(), Quarterly)
	require.NoError(t, err)

	s := ToSeries(Quarterly, 0, buckets)
	assert.Equal(t, []string{"Q4 2023", "Q1 2024", "Q2 2024", "Q4 2024"}, s.Labels)
	assert.Equal(t, []int64{40, 150, -20, -10}, s.Balance)

	single := ToSeries(Quarterly, 2024, FilterYear(buckets, 2024))
	assert.Equal(t, []string{"Q1", "Q2", "Q4"}, single.Labels)
	assert.Equal(t, []int64{150, 0, 5}, single.Incoming)
}

func TestYears(t *testing.T) {
	assert.Equal(t, []int{2024, 2023}, Years(sampleEntries()))
}
