package calculate

import (
	"math"

	"github.com/quantfold/weathervane/internal/model"
)

// CalculateATR calculates the Average True Range over the last period bars.
//
// TR = max(high-low, |high-prevClose|, |low-prevClose|); ATR is the mean of
// the most recent period true ranges, or of all available true ranges when
// the series is shorter. A single candle degenerates to its own range.
func CalculateATR(candles []model.Candle, period int) float64 {
	if len(candles) < 2 {
		if len(candles) == 1 {
			return candles[0].Range()
		}
		return 0
	}

	trueRanges := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trueRanges = append(trueRanges, trueRange(candles[i], candles[i-1].Close))
	}

	if len(trueRanges) > period {
		trueRanges = trueRanges[len(trueRanges)-period:]
	}

	return Mean(trueRanges)
}

func trueRange(c model.Candle, prevClose float64) float64 {
	tr := c.Range()
	if hc := math.Abs(c.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(c.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

// LogReturns calculates consecutive close-to-close log returns, skipping
// pairs where the earlier close is non-positive.
func LogReturns(candles []model.Candle) []float64 {
	returns := make([]float64, 0, len(candles))
	for i := 1; i < len(candles); i++ {
		if candles[i-1].Close > 0 {
			returns = append(returns, math.Log(candles[i].Close/candles[i-1].Close))
		}
	}
	return returns
}
