package model

import (
	"math"
	"testing"
)

func TestCandleRange(t *testing.T) {
	c := Candle{Open: 100, High: 103, Low: 98, Close: 101}
	if got := c.Range(); got != 5 {
		t.Errorf("Range() = %v, want 5", got)
	}
}

func TestCandleTypicalPrice(t *testing.T) {
	c := Candle{Open: 100, High: 103, Low: 98, Close: 101}
	want := (103.0 + 98.0 + 101.0) / 3.0
	if got := c.TypicalPrice(); math.Abs(got-want) > 1e-9 {
		t.Errorf("TypicalPrice() = %v, want %v", got, want)
	}
}
