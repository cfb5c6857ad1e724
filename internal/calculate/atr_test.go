package calculate

import (
	"math"
	"testing"

	"github.com/quantfold/weathervane/internal/model"
)

func TestCalculateATR(t *testing.T) {
	tests := []struct {
		name    string
		candles []model.Candle
		period  int
		want    float64
	}{
		{"empty", nil, 14, 0},
		{
			"single candle degenerates to its range",
			[]model.Candle{{Open: 100, High: 103, Low: 99, Close: 101}},
			14,
			4,
		},
		{
			"uses previous close in true range",
			[]model.Candle{
				{Open: 100, High: 101, Low: 99, Close: 100},
				// Gap up: TR = high - prevClose = 5, not high - low = 1.
				{Open: 104, High: 105, Low: 104, Close: 105},
			},
			14,
			5,
		},
		{
			"averages only the last period true ranges",
			[]model.Candle{
				{Open: 100, High: 110, Low: 90, Close: 100}, // dropped
				{Open: 100, High: 102, Low: 100, Close: 101},
				{Open: 101, High: 103, Low: 101, Close: 102},
				{Open: 102, High: 104, Low: 102, Close: 103},
			},
			2,
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateATR(tt.candles, tt.period)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CalculateATR() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogReturns(t *testing.T) {
	candles := []model.Candle{
		{Close: 100},
		{Close: 110},
		{Close: 99},
	}

	returns := LogReturns(candles)
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	if math.Abs(returns[0]-math.Log(1.1)) > 1e-9 {
		t.Errorf("first return = %v, want %v", returns[0], math.Log(1.1))
	}
	if math.Abs(returns[1]-math.Log(99.0/110.0)) > 1e-9 {
		t.Errorf("second return = %v, want %v", returns[1], math.Log(99.0/110.0))
	}
}

func TestLogReturnsSkipsNonPositiveCloses(t *testing.T) {
	candles := []model.Candle{
		{Close: 0},
		{Close: 100},
		{Close: 105},
	}

	returns := LogReturns(candles)
	if len(returns) != 1 {
		t.Fatalf("expected 1 return, got %d", len(returns))
	}
}
