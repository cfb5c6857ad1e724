package regime

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/quantfold/weathervane/internal/model"
	"github.com/quantfold/weathervane/internal/session"
)

// 10:00 CT on a Wednesday: mid-morning, 90 minutes after the open.
func midMorning() time.Time {
	return time.Date(2025, time.January, 15, 16, 0, 0, 0, time.UTC)
}

func flatCandles(n int) []model.Candle {
	base := time.Date(2025, time.January, 15, 14, 30, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = model.Candle{
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100,
			Volume:    1000,
			Timestamp: base.Add(time.Duration(i) * 5 * time.Minute),
		}
	}
	return candles
}

func trendingCandles(n int) []model.Candle {
	base := time.Date(2025, time.January, 15, 14, 30, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	for i := range candles {
		step := 3.0 * float64(i)
		candles[i] = model.Candle{
			Open:      100 + step,
			High:      102.6 + step,
			Low:       99.9 + step,
			Close:     102.5 + step,
			Volume:    1000 + int64(100*i),
			Timestamp: base.Add(time.Duration(i) * 5 * time.Minute),
		}
	}
	return candles
}

func flatFine(n int) []model.Candle {
	base := time.Date(2025, time.January, 15, 14, 30, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = model.Candle{
			Open:      100,
			High:      100,
			Low:       100,
			Close:     100,
			Volume:    500,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return candles
}

func newTestCalculator(t *testing.T, instrument string) *Calculator {
	t.Helper()

	calib, err := Lookup(instrument)
	if err != nil {
		t.Fatalf("Lookup(%s) error: %v", instrument, err)
	}
	clock, err := session.NewClock()
	if err != nil {
		t.Fatalf("NewClock() error: %v", err)
	}
	return NewCalculator(instrument, calib, clock, midMorning)
}

func TestCalculateInsufficientData(t *testing.T) {
	calc := newTestCalculator(t, "ES")

	tests := []struct {
		name        string
		fine        []model.Candle
		coarse      []model.Candle
		granularity string
	}{
		{"too few coarse", flatFine(60), flatCandles(19), "5m"},
		{"too few fine", flatFine(59), flatCandles(20), "1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Calculate(tt.fine, tt.coarse, 100)
			var insufficient *InsufficientDataError
			if !errors.As(err, &insufficient) {
				t.Fatalf("expected InsufficientDataError, got %v", err)
			}
			if insufficient.Granularity != tt.granularity {
				t.Errorf("Granularity = %q, want %q", insufficient.Granularity, tt.granularity)
			}
		})
	}
}

func TestCalculateMinimumSeries(t *testing.T) {
	calc := newTestCalculator(t, "ES")

	if _, err := calc.Calculate(flatFine(60), flatCandles(20), 100); err != nil {
		t.Fatalf("Calculate() with minimum series lengths error: %v", err)
	}
}

func TestCalculateFlatSession(t *testing.T) {
	calc := newTestCalculator(t, "ES")

	features, err := calc.Calculate(flatFine(60), flatCandles(20), 100)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"vwap", features.VWAP, 100},
		{"vwap_slope", features.VWAPSlope, 0},
		{"vwap_distance", features.VWAPDistance, 0},
		{"atr_14", features.ATR14, 2},
		{"atr_slope", features.ATRSlope, 0},
		{"bar_overlap_ratio", features.BarOverlapRatio, 1},
		{"directional_efficiency", features.DirectionalEfficiency, 0},
		{"average_pullback_depth", features.AveragePullbackDepth, 2},
		{"session_range", features.SessionRange, 2},
		{"historical_range_zscore", features.HistoricalRangeZScore, 0},
		{"volatility_ratio", features.VolatilityRatio, 1},
		{"volume_acceleration", features.VolumeAcceleration, 1},
		{"range_per_volume", features.RangePerVolume, 2.0 / 20000.0},
	}
	for _, check := range checks {
		if math.Abs(check.got-check.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", check.name, check.got, check.want)
		}
	}

	if features.CumulativeVolume != 20000 {
		t.Errorf("cumulative_volume = %d, want 20000", features.CumulativeVolume)
	}
	// 90 minutes in lands on the 09:30 bucket (65000), scaled by the 100
	// minutes the 20-bar window covers.
	if features.ExpectedVolume != 433333 {
		t.Errorf("expected_volume = %d, want 433333", features.ExpectedVolume)
	}
	if features.OpeningRangePosition != model.ORInside {
		t.Errorf("opening_range_position = %v, want inside", features.OpeningRangePosition)
	}
	if features.SessionPhase != model.PhaseMidMorning {
		t.Errorf("session_phase = %v, want mid_morning", features.SessionPhase)
	}
	if features.MinutesSinceOpen != 90 {
		t.Errorf("minutes_since_open = %d, want 90", features.MinutesSinceOpen)
	}
}

func TestCalculateTrendingSession(t *testing.T) {
	calc := newTestCalculator(t, "ES")

	coarse := trendingCandles(40)
	currentPrice := coarse[len(coarse)-1].Close

	features, err := calc.Calculate(flatFine(60), coarse, currentPrice)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}

	if features.DirectionalEfficiency <= 1.0 {
		t.Errorf("directional_efficiency = %v, want > 1 for a one-way march", features.DirectionalEfficiency)
	}
	if features.BarOverlapRatio != 0 {
		t.Errorf("bar_overlap_ratio = %v, want 0 for gapping bars", features.BarOverlapRatio)
	}
	if features.VWAPSlope <= 0 {
		t.Errorf("vwap_slope = %v, want positive", features.VWAPSlope)
	}
	if features.OpeningRangePosition != model.ORAboveHigh {
		t.Errorf("opening_range_position = %v, want above_orh", features.OpeningRangePosition)
	}
	if features.AveragePullbackDepth >= 1.5 {
		t.Errorf("average_pullback_depth = %v, want shallow", features.AveragePullbackDepth)
	}
}

func TestCalculateDeterministic(t *testing.T) {
	calc := newTestCalculator(t, "NQ")

	coarse := trendingCandles(30)
	fine := flatFine(120)

	first, err := calc.Calculate(fine, coarse, 150)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	second, err := calc.Calculate(fine, coarse, 150)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}

	if *first != *second {
		t.Errorf("same inputs produced different features:\n%+v\n%+v", first, second)
	}
}
