package contracts

import (
	"testing"
	"time"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestFrontMonth(t *testing.T) {
	tests := []struct {
		name    string
		product string
		asOf    time.Time
		want    string
	}{
		{"mid quarter", "ES", day(2025, time.January, 15), "/ESH25"},
		{"inside rollover window", "ES", day(2025, time.March, 14), "/ESM25"},
		{"just past expiration", "ES", day(2025, time.June, 25), "/ESU25"},
		{"december rolls into next year", "ES", day(2025, time.December, 20), "/ESH26"},
		{"nq product", "NQ", day(2025, time.January, 15), "/NQH25"},
		{"lowercase product", "es", day(2025, time.January, 15), "/ESH25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FrontMonth(tt.product, tt.asOf); got != tt.want {
				t.Errorf("FrontMonth(%s, %v) = %s, want %s", tt.product, tt.asOf, got, tt.want)
			}
		})
	}
}

func TestExpiration(t *testing.T) {
	tests := []struct {
		symbol string
		want   time.Time
		ok     bool
	}{
		{"/ESH25", day(2025, time.March, 21), true},
		{"/ESM25", day(2025, time.June, 20), true},
		{"/NQZ26", day(2026, time.December, 18), true},
		{"ESH25", time.Time{}, false},
		{"/ESA25", time.Time{}, false},
		{"/ESHxx", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, ok := Expiration(tt.symbol)
			if ok != tt.ok {
				t.Fatalf("Expiration(%s) ok = %v, want %v", tt.symbol, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("Expiration(%s) = %v, want %v", tt.symbol, got, tt.want)
			}
		})
	}
}

func TestThirdFriday(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.March, 21},
		{2025, time.June, 20},
		{2025, time.September, 19},
		{2025, time.December, 19},
	}

	for _, tt := range tests {
		got := thirdFriday(tt.year, tt.month)
		if got.Day() != tt.want || got.Weekday() != time.Friday {
			t.Errorf("thirdFriday(%d, %v) = %v, want day %d (a Friday)", tt.year, tt.month, got, tt.want)
		}
	}
}
