package model

// FeatureVector holds every market-structure feature the classifier consumes.
// All fields are pure functions of the input candle windows plus the session
// clock; a fresh vector is allocated per classification call and never mutated.
type FeatureVector struct {
	// Price structure
	VWAP                  float64 `json:"vwap"`
	VWAPSlope             float64 `json:"vwap_slope"`
	VWAPDistance          float64 `json:"vwap_distance"`
	ATR14                 float64 `json:"atr_14"`
	ATRSlope              float64 `json:"atr_slope"`
	BarOverlapRatio       float64 `json:"bar_overlap_ratio"`
	DirectionalEfficiency float64 `json:"directional_efficiency"`
	AveragePullbackDepth  float64 `json:"average_pullback_depth"`

	// Range metrics
	SessionRange          float64              `json:"session_range"`
	HistoricalRangeZScore float64              `json:"historical_range_zscore"`
	OpeningRangePosition  OpeningRangePosition `json:"opening_range_position"`

	// Volatility
	RealizedVolatilityShort float64 `json:"realized_volatility_short"`
	RealizedVolatilityLong  float64 `json:"realized_volatility_long"`
	VolatilityRatio         float64 `json:"volatility_ratio"`

	// Participation
	CumulativeVolume   int64   `json:"cumulative_volume"`
	ExpectedVolume     int64   `json:"expected_volume"`
	VolumeRatio        float64 `json:"volume_ratio"`
	VolumeAcceleration float64 `json:"volume_acceleration"`
	RangePerVolume     float64 `json:"range_per_volume"`

	// Session context
	SessionPhase     SessionPhase `json:"session_phase"`
	MinutesSinceOpen int          `json:"minutes_since_open"`
}
