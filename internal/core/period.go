package core

import (
	"fmt"
	"time"
)

// Period is a (year, month) partition key over transactions. It is derived
// from transaction dates and never stored.
type Period struct {
	Year  int
	Month int // 1-12
}

func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	return Period{Year: year, Month: month}, nil
}

// Previous returns the immediately preceding period. Years are unbounded.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Bounds returns the first and last calendar day of the month. time.Date
// normalizes day 0 of the next month to the last day of this one, which
// handles leap years.
func (p Period) Bounds() (start, end time.Time) {
	start = time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(p.Year, time.Month(p.Month)+1, 0, 0, 0, 0, 0, time.UTC)
	return start, end
}

// Contains reports whether the date falls inside the period. Empty dates
// belong to no period.
func (p Period) Contains(d TxDate) bool {
	if d.IsEmpty() {
		return false
	}
	return d.Year() == p.Year && int(d.Month()) == p.Month
}

// String renders "March 2025" style labels for reports.
func (p Period) String() string {
	return fmt.Sprintf("%s %d", time.Month(p.Month).String(), p.Year)
}

// Key renders the compact "2025-03" form used for cache keys and filenames.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
