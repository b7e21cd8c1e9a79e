package core

// Totals is a pair of summed income and expense amounts.
type Totals struct {
	Incoming int64
	Outgoing int64
}

func (t Totals) Balance() int64 {
	return t.Incoming - t.Outgoing
}

// Overview is what the landing dashboard shows.
type Overview struct {
	Residents  int
	Activities int
	Upcoming   []Activity
	Year       int
	YearTotals Totals
}
