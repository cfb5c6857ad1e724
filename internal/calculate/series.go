package calculate

import "math"

// Mean calculates the simple average of a series.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}

// StdDev calculates the population standard deviation of a series.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := Mean(values)

	var sumSquares float64
	for _, value := range values {
		diff := value - mean
		sumSquares += diff * diff
	}

	return math.Sqrt(sumSquares / float64(len(values)))
}

// Slope fits an ordinary least-squares line to the series against its index
// and returns the slope normalized by the series mean, so values are
// comparable across instruments trading at different price levels. Returns 0
// for series shorter than 2 points or with a zero mean.
func Slope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (fn*sumXY - sumX*sumY) / denom

	mean := sumY / fn
	if mean == 0 {
		return 0
	}

	return slope / mean
}
