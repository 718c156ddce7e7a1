package core

import (
	"testing"
	"time"
)

func TestPeriodPrevious(t *testing.T) {
	cases := []struct {
		in   Period
		want Period
	}{
		{Period{2025, 1}, Period{2024, 12}},
		{Period{2025, 6}, Period{2025, 5}},
		{Period{2021, 12}, Period{2021, 11}},
	}
	for i, tc := range cases {
		if got := tc.in.Previous(); got != tc.want {
			t.Fatalf("case %d: got %v want %v", i, got, tc.want)
		}
	}
}

func TestPeriodBounds(t *testing.T) {
	cases := []struct {
		p       Period
		lastDay int
	}{
		{Period{2025, 3}, 31},
		{Period{2025, 4}, 30},
		{Period{2024, 2}, 29}, // leap year
		{Period{2025, 2}, 28},
		{Period{2000, 2}, 29}, // century leap year
		{Period{1900, 2}, 28}, // century non-leap
	}
	for i, tc := range cases {
		start, end := tc.p.Bounds()
		if start.Day() != 1 || int(start.Month()) != tc.p.Month || start.Year() != tc.p.Year {
			t.Fatalf("case %d: bad start %v", i, start)
		}
		if end.Day() != tc.lastDay {
			t.Fatalf("case %d: got last day %d want %d", i, end.Day(), tc.lastDay)
		}
	}
}

func TestNewPeriodRejectsBadMonth(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		if _, err := NewPeriod(2025, m); err == nil {
			t.Fatalf("expected error for month %d", m)
		}
	}
}

func TestPeriodContains(t *testing.T) {
	p := Period{2025, 3}
	if !p.Contains(NewTxDate(2025, 3, 15)) {
		t.Fatalf("expected date inside period")
	}
	if p.Contains(NewTxDate(2025, 4, 1)) {
		t.Fatalf("expected next month outside period")
	}
	if p.Contains(TxDate{}) {
		t.Fatalf("empty date must belong to no period")
	}
}

func TestParseTxDate(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"2025-03-05", true, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2025/03/05", true, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"05/03/2025", true, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"05 Mar 2025", true, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"", false, time.Time{}},
		{"not-a-date", false, time.Time{}},
	}
	for i, tc := range cases {
		d, ok := ParseTxDate(tc.in)
		if ok != tc.ok {
			t.Fatalf("case %d (%q): ok=%v want %v", i, tc.in, ok, tc.ok)
		}
		if ok && !d.Equal(tc.want) {
			t.Fatalf("case %d (%q): got %v want %v", i, tc.in, d.Time, tc.want)
		}
		if !ok && !d.IsEmpty() {
			t.Fatalf("case %d (%q): failed parse must be empty", i, tc.in)
		}
	}
}
