package core

import (
	"testing"
	"time"
)

func TestNewPeriodValidation(t *testing.T) {
	cases := []struct {
		month, year int
		ok          bool
	}{
		{1, 2024, true},
		{12, 2024, true},
		{0, 2024, false},
		{13, 2024, false},
		{5, 0, false},
	}
	for i, tc := range cases {
		_, err := NewPeriod(tc.month, tc.year)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPeriodWindow(t *testing.T) {
	cases := []struct {
		name        string
		month, year int
		start, end  time.Time
	}{
		{
			name:  "december stays in its year",
			month: 12, year: 2024,
			start: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
		},
		{
			name:  "february leap year",
			month: 2, year: 2024,
			start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		},
		{
			name:  "february non-leap year",
			month: 2, year: 2023,
			start: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2023, 2, 28, 23, 59, 59, 0, time.UTC),
		},
		{
			name:  "thirty day month",
			month: 4, year: 2025,
			start: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 4, 30, 23, 59, 59, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPeriod(tc.month, tc.year)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !p.Start().Equal(tc.start) {
				t.Errorf("start = %v, want %v", p.Start(), tc.start)
			}
			if !p.End().Equal(tc.end) {
				t.Errorf("end = %v, want %v", p.End(), tc.end)
			}
		})
	}
}

func TestPeriodContains(t *testing.T) {
	p := Period{Month: 6, Year: 2025}
	cases := []struct {
		t  time.Time
		in bool
	}{
		{time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC), true},
		{time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC), false},
		{time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for i, tc := range cases {
		if got := p.Contains(tc.t); got != tc.in {
			t.Errorf("case %d Contains(%v) = %v, want %v", i, tc.t, got, tc.in)
		}
	}
}
