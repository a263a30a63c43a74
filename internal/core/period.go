package core

import "time"

// Period identifies one calendar month.
type Period struct {
	Month int // 1-12
	Year  int
}

// NewPeriod validates month/year and returns the period.
func NewPeriod(month, year int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, ErrInvalidMonth
	}
	if year < 1 {
		return Period{}, ErrInvalidYear
	}
	return Period{Month: month, Year: year}, nil
}

// Start returns the first instant of the period: day 1 at 00:00:00 UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last included instant of the period: the final day of
// the month at 23:59:59 UTC. Day 0 of the following month lets time.Date
// resolve month lengths and year rollover, so February and December need
// no special casing.
func (p Period) End() time.Time {
	return time.Date(p.Year, time.Month(p.Month)+1, 0, 23, 59, 59, 0, time.UTC)
}

// Contains reports whether t falls inside the period, bounds included.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start()) && !t.After(p.End())
}
