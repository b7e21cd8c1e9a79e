package google

import (
	"strconv"
	"time"

	"asrama/internal/core"
	"asrama/internal/period"
)

// SummaryHeader is the first row of the summary tab.
var SummaryHeader = []any{"Periode", "Tahun", "Pemasukan", "Pengeluaran", "Saldo"}

// Summary holds the three series written to the summary tab, top to bottom.
type Summary struct {
	Monthly     []period.Bucket
	Quarterly   []period.Bucket
	Yearly      []period.Bucket
	GeneratedAt time.Time
}

// MinutesLogEntry is one uploaded minutes document together with its activity.
type MinutesLogEntry struct {
	Activity core.Activity
	Minutes  core.Minutes
}

// summaryRows lays the series out one after another, separated by a blank
// row. Amounts stay numeric so the sheet can sum them. The last row records
// when the export ran.
func summaryRows(s Summary) [][]any {
	rows := [][]any{SummaryHeader}
	sections := [][]period.Bucket{s.Monthly, s.Quarterly, s.Yearly}
	for i, buckets := range sections {
		if i > 0 && len(buckets) > 0 && len(rows) > 1 {
			rows = append(rows, []any{})
		}
		for _, b := range buckets {
			rows = append(rows, []any{bucketLabel(b), b.Year, b.Incoming, b.Outgoing, b.Balance()})
		}
	}
	if !s.GeneratedAt.IsZero() {
		rows = append(rows, []any{}, []any{"Diperbarui", s.GeneratedAt.Format(time.RFC3339)})
	}
	return rows
}

// bucketLabel names yearly buckets "Tahun 2024" so they do not read as a bare number.
func bucketLabel(b period.Bucket) string {
	if b.Index == 0 {
		return "Tahun " + strconv.Itoa(b.Year)
	}
	return b.Label
}

func minutesRow(e MinutesLogEntry) []any {
	uploaded := e.Minutes.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now()
	}
	return []any{
		uploaded.UTC().Format(time.RFC3339),
		e.Activity.ID,
		e.Activity.Title,
		e.Activity.Date.String(),
		e.Minutes.FileName,
		e.Minutes.Size,
	}
}
