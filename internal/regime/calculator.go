package regime

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/weathervane/internal/calculate"
	"github.com/quantfold/weathervane/internal/model"
	"github.com/quantfold/weathervane/internal/session"
)

const (
	minCoarseCandles = 20
	minFineCandles   = 60

	vwapWindow     = 20
	atrPeriod      = 14
	atrSlopeWindow = 10
	overlapWindow  = 20
	pullbackWindow = 20
	openingBars    = 6
	shortVolBars   = 60  // ~1 hour of 1m candles
	longVolBars    = 240 // ~4 hours of 1m candles
	volAccelWindow = 10
)

// Calculator derives a FeatureVector from raw candle series. It holds no
// state between calls; every invocation is a pure function of its inputs,
// the calibration profile and the injected time source.
type Calculator struct {
	instrument string
	calib      Params
	clock      *session.Clock
	now        func() time.Time
	logger     zerolog.Logger
}

// NewCalculator creates a feature calculator for one instrument. A nil now
// falls back to wall-clock time; tests supply a fixed instant.
func NewCalculator(instrument string, calib Params, clock *session.Clock, now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{
		instrument: instrument,
		calib:      calib,
		clock:      clock,
		now:        now,
		logger:     log.With().Str("component", "feature_calculator").Str("instrument", instrument).Logger(),
	}
}

// Calculate computes every feature the classifier needs from aligned 1-minute
// and 5-minute candle series plus the current price. Fails with
// *InsufficientDataError when either series is shorter than its rolling
// windows require; every formula past that gate is total.
func (c *Calculator) Calculate(fine, coarse []model.Candle, currentPrice float64) (*model.FeatureVector, error) {
	if len(coarse) < minCoarseCandles {
		return nil, &InsufficientDataError{Granularity: "5m", Have: len(coarse), Need: minCoarseCandles}
	}
	if len(fine) < minFineCandles {
		return nil, &InsufficientDataError{Granularity: "1m", Have: len(fine), Need: minFineCandles}
	}

	c.logger.Debug().Int("fine", len(fine)).Int("coarse", len(coarse)).Msg("Calculating features")

	now := c.now()

	vwap := calculateVWAP(coarse)
	vwapSlope := calculate.Slope(vwapSeries(coarse, vwapWindow))
	vwapDistance := math.Abs(currentPrice - vwap)

	atr14 := calculate.CalculateATR(coarse, atrPeriod)
	atrSlope := c.atrSlope(coarse)

	overlap := barOverlapRatio(coarse, overlapWindow)
	efficiency := directionalEfficiency(coarse)
	pullback := averagePullbackDepth(coarse, pullbackWindow)

	sessionRange := rangeOf(coarse)
	rangeZScore := rangeZScore(coarse)
	orPosition := openingRangePosition(coarse, currentPrice)

	rvShort := realizedVolatility(fine[len(fine)-shortVolBars:])
	rvLong := realizedVolatility(tail(fine, longVolBars))
	volatilityRatio := 1.0
	if rvLong > 0 {
		volatilityRatio = rvShort / rvLong
	}

	var cumulativeVolume int64
	for _, candle := range coarse {
		cumulativeVolume += candle.Volume
	}

	minutes := c.clock.MinutesSinceOpen(now)
	expectedVolume := c.expectedVolume(len(coarse), minutes)
	volumeRatio := 1.0
	if expectedVolume > 0 {
		volumeRatio = float64(cumulativeVolume) / float64(expectedVolume)
	}

	rangePerVolume := 0.0
	if cumulativeVolume > 0 {
		rangePerVolume = sessionRange / float64(cumulativeVolume)
	}

	features := &model.FeatureVector{
		VWAP:                    vwap,
		VWAPSlope:               vwapSlope,
		VWAPDistance:            vwapDistance,
		ATR14:                   atr14,
		ATRSlope:                atrSlope,
		BarOverlapRatio:         overlap,
		DirectionalEfficiency:   efficiency,
		AveragePullbackDepth:    pullback,
		SessionRange:            sessionRange,
		HistoricalRangeZScore:   rangeZScore,
		OpeningRangePosition:    orPosition,
		RealizedVolatilityShort: rvShort,
		RealizedVolatilityLong:  rvLong,
		VolatilityRatio:         volatilityRatio,
		CumulativeVolume:        cumulativeVolume,
		ExpectedVolume:          expectedVolume,
		VolumeRatio:             volumeRatio,
		VolumeAcceleration:      volumeAcceleration(coarse, volAccelWindow),
		RangePerVolume:          rangePerVolume,
		SessionPhase:            c.clock.Phase(now),
		MinutesSinceOpen:        minutes,
	}

	c.logger.Info().
		Float64("vwap", vwap).
		Float64("atr", atr14).
		Float64("efficiency", efficiency).
		Float64("overlap", overlap).
		Msg("Features calculated")

	return features, nil
}

// calculateVWAP is the volume-weighted average of typical prices over the
// whole window, falling back to the last close when no volume traded.
func calculateVWAP(candles []model.Candle) float64 {
	var totalPV, totalVolume float64
	for _, candle := range candles {
		totalPV += candle.TypicalPrice() * float64(candle.Volume)
		totalVolume += float64(candle.Volume)
	}

	if totalVolume == 0 {
		return candles[len(candles)-1].Close
	}
	return totalPV / totalVolume
}

// vwapSeries computes the rolling VWAP over every window-sized sub-window,
// oldest to newest.
func vwapSeries(candles []model.Candle, window int) []float64 {
	if len(candles) < window {
		return nil
	}

	series := make([]float64, 0, len(candles)-window+1)
	for i := window; i <= len(candles); i++ {
		series = append(series, calculateVWAP(candles[i-window:i]))
	}
	return series
}

// atrSlope is the normalized slope of the last 10 values of the trailing ATR
// series; 0 until enough ATR history accumulates.
func (c *Calculator) atrSlope(candles []model.Candle) float64 {
	if len(candles) <= atrPeriod {
		return 0
	}

	series := make([]float64, 0, len(candles)-atrPeriod)
	for i := atrPeriod; i < len(candles); i++ {
		series = append(series, calculate.CalculateATR(candles[i-atrPeriod+1:i+1], atrPeriod))
	}

	if len(series) < atrSlopeWindow {
		return 0
	}
	return calculate.Slope(series[len(series)-atrSlopeWindow:])
}

// barOverlapRatio is the fraction of consecutive bar pairs whose high/low
// ranges intersect, over the most recent window bars.
func barOverlapRatio(candles []model.Candle, window int) float64 {
	if len(candles) < 2 {
		return 0
	}

	recent := tail(candles, window)
	overlaps := 0
	for i := 1; i < len(recent); i++ {
		overlapHigh := math.Min(recent[i-1].High, recent[i].High)
		overlapLow := math.Max(recent[i-1].Low, recent[i].Low)
		if overlapHigh > overlapLow {
			overlaps++
		}
	}

	return float64(overlaps) / float64(len(recent)-1)
}

// directionalEfficiency is net displacement over total path length: 1.0 means
// every point of range contributed to the move, 0 means pure churn.
func directionalEfficiency(candles []model.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}

	net := math.Abs(candles[len(candles)-1].Close - candles[0].Open)
	var total float64
	for _, candle := range candles {
		total += candle.Range()
	}

	if total == 0 {
		return 0
	}
	return net / total
}

// averagePullbackDepth measures how much of each bar's range retraced against
// its direction. Bars whose directional denominator is non-positive are
// skipped; with no qualifying bars the depth defaults to 1.0.
func averagePullbackDepth(candles []model.Candle, window int) float64 {
	recent := tail(candles, window)

	pullbacks := make([]float64, 0, len(recent))
	for _, candle := range recent {
		var denom float64
		if candle.Close > candle.Open {
			denom = candle.High - candle.Open
		} else {
			denom = candle.Open - candle.Low
		}
		if denom > 0 {
			pullbacks = append(pullbacks, candle.Range()/denom)
		}
	}

	if len(pullbacks) == 0 {
		return 1.0
	}
	return calculate.Mean(pullbacks)
}

// rangeOf is the max-high minus min-low over the whole window.
func rangeOf(candles []model.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}

	high := candles[0].High
	low := candles[0].Low
	for _, candle := range candles[1:] {
		high = math.Max(high, candle.High)
		low = math.Min(low, candle.Low)
	}
	return high - low
}

// rangeZScore compares the most recent chunk's range against the history of
// chunk ranges. Chunks approximate trading days: 78 five-minute bars is one
// regular session.
func rangeZScore(candles []model.Candle) float64 {
	if len(candles) < 20 {
		return 0
	}

	chunkSize := len(candles) / 5
	if chunkSize > 78 {
		chunkSize = 78
	}

	var ranges []float64
	for i := 0; i < len(candles)-chunkSize; i += chunkSize {
		ranges = append(ranges, rangeOf(candles[i:i+chunkSize]))
	}

	if len(ranges) < 2 {
		return 0
	}

	std := calculate.StdDev(ranges)
	if std == 0 {
		return 0
	}

	current := rangeOf(candles[len(candles)-chunkSize:])
	return (current - calculate.Mean(ranges)) / std
}

// openingRangePosition locates the current price against the first 30
// minutes (6 five-minute bars) of the window.
func openingRangePosition(candles []model.Candle, currentPrice float64) model.OpeningRangePosition {
	if len(candles) < openingBars {
		return model.ORInside
	}

	opening := candles[:openingBars]
	orHigh := opening[0].High
	orLow := opening[0].Low
	for _, candle := range opening[1:] {
		orHigh = math.Max(orHigh, candle.High)
		orLow = math.Min(orLow, candle.Low)
	}

	switch {
	case currentPrice > orHigh:
		return model.ORAboveHigh
	case currentPrice < orLow:
		return model.ORBelowLow
	default:
		return model.ORInside
	}
}

// realizedVolatility is the population standard deviation of consecutive
// close-to-close log returns.
func realizedVolatility(candles []model.Candle) float64 {
	returns := calculate.LogReturns(candles)
	if len(returns) == 0 {
		return 0
	}
	return calculate.StdDev(returns)
}

// expectedVolume looks up the expected-volume curve at the 15-minute bucket
// for the current minutes-since-open, then scales the single bucket value by
// the minutes covered by the window. Scaling one bucket instead of summing
// the elapsed buckets is a known approximation; the persisted numbers depend
// on it, so recalibrate the curves before changing it.
func (c *Calculator) expectedVolume(coarseCount, minutesSinceOpen int) int64 {
	minutesElapsed := coarseCount * 5

	bucketMinute := (minutesSinceOpen / 15) * 15
	bucket := fmt.Sprintf("%02d:%02d", 8+bucketMinute/60, bucketMinute%60)

	expected := ExpectedVolume(c.instrument, bucket)
	return int64(float64(expected) * float64(minutesElapsed) / 15.0)
}

// volumeAcceleration is the mean volume of the latest window bars over the
// mean volume of the window before it; 1.0 when there is not enough history
// or the earlier window traded nothing.
func volumeAcceleration(candles []model.Candle, window int) float64 {
	if len(candles) < window*2 {
		return 1.0
	}

	var recent, earlier float64
	for _, candle := range candles[len(candles)-window:] {
		recent += float64(candle.Volume)
	}
	for _, candle := range candles[len(candles)-window*2 : len(candles)-window] {
		earlier += float64(candle.Volume)
	}

	if earlier == 0 {
		return 1.0
	}
	return recent / earlier
}

// tail returns the last n elements, or the whole slice when shorter.
func tail(candles []model.Candle, n int) []model.Candle {
	if len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}
