package regime

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownInstrument is returned when no calibration profile exists for the
// requested instrument.
var ErrUnknownInstrument = errors.New("unknown instrument")

// Params holds the per-instrument calibration thresholds for regime
// detection. Different instruments need different cutoffs because their
// volatility and structure differ; the values are loaded once and never
// mutated at runtime.
type Params struct {
	Instrument string `yaml:"instrument"`

	// Score thresholds for the primary regime decision.
	BalanceThreshold   float64 `yaml:"balance_threshold"`
	ImbalanceThreshold float64 `yaml:"imbalance_threshold"`

	// ATR baselines.
	ATRBaseline      float64 `yaml:"atr_baseline"`
	ATRExtremeZScore float64 `yaml:"atr_extreme_zscore"`

	// Directional-efficiency bands for trend quality.
	EfficiencyTrendClean float64 `yaml:"efficiency_trend_clean"`
	EfficiencyTrendWeak  float64 `yaml:"efficiency_trend_weak"`

	// Bar-overlap bands for balance detection.
	OverlapBalancedHigh float64 `yaml:"overlap_balanced_high"`
	OverlapBalancedLow  float64 `yaml:"overlap_balanced_low"`

	// Volume-participation bands.
	VolumeThinThreshold  float64 `yaml:"volume_thin_threshold"`
	VolumeHeavyThreshold float64 `yaml:"volume_heavy_threshold"`

	// Realized-volatility ratio bands (short RV / long RV).
	VolatilityCompressing float64 `yaml:"volatility_compressing"`
	VolatilityExpanding   float64 `yaml:"volatility_expanding"`

	// Price distance from VWAP, in instrument points, considered "near".
	VWAPDistanceThreshold float64 `yaml:"vwap_distance_threshold"`

	// Balance/imbalance score separation required for confidence tiers.
	ConfidenceHighSeparation   float64 `yaml:"confidence_high_separation"`
	ConfidenceMediumSeparation float64 `yaml:"confidence_medium_separation"`
}

// ES: E-mini S&P 500. Cleaner balance behavior, more reliable structure.
var esCalibration = Params{
	Instrument:                 "ES",
	BalanceThreshold:           60.0,
	ImbalanceThreshold:         60.0,
	ATRBaseline:                15.0,
	ATRExtremeZScore:           2.5,
	EfficiencyTrendClean:       0.70,
	EfficiencyTrendWeak:        0.50,
	OverlapBalancedHigh:        0.60,
	OverlapBalancedLow:         0.30,
	VolumeThinThreshold:        0.70,
	VolumeHeavyThreshold:       1.30,
	VolatilityCompressing:      0.80,
	VolatilityExpanding:        1.20,
	VWAPDistanceThreshold:      5.0,
	ConfidenceHighSeparation:   30.0,
	ConfidenceMediumSeparation: 15.0,
}

// NQ: E-mini NASDAQ-100. Higher volatility and more false breakouts, so the
// thresholds demand stronger evidence before committing to a label.
var nqCalibration = Params{
	Instrument:                 "NQ",
	BalanceThreshold:           65.0,
	ImbalanceThreshold:         65.0,
	ATRBaseline:                50.0,
	ATRExtremeZScore:           2.5,
	EfficiencyTrendClean:       0.75,
	EfficiencyTrendWeak:        0.55,
	OverlapBalancedHigh:        0.65,
	OverlapBalancedLow:         0.35,
	VolumeThinThreshold:        0.70,
	VolumeHeavyThreshold:       1.30,
	VolatilityCompressing:      0.80,
	VolatilityExpanding:        1.20,
	VWAPDistanceThreshold:      15.0,
	ConfidenceHighSeparation:   35.0,
	ConfidenceMediumSeparation: 20.0,
}

// Lookup returns the calibration profile for an instrument. Fails with
// ErrUnknownInstrument for anything besides ES and NQ.
func Lookup(instrument string) (Params, error) {
	switch strings.ToUpper(instrument) {
	case "ES":
		return esCalibration, nil
	case "NQ":
		return nqCalibration, nil
	default:
		return Params{}, fmt.Errorf("%w: %s (supported: ES, NQ)", ErrUnknownInstrument, instrument)
	}
}

// Expected cumulative volume per 15-minute time-of-day bucket (CT). These are
// placeholder curves pending calibration from stored history.
var esVolumeCurve = map[string]int64{
	"08:30": 100000, "08:45": 90000,
	"09:00": 80000, "09:15": 70000, "09:30": 65000, "09:45": 60000,
	"10:00": 55000, "10:15": 50000, "10:30": 50000, "10:45": 50000,
	"11:00": 48000, "11:15": 45000, "11:30": 40000, "11:45": 38000,
	"12:00": 35000, "12:15": 35000, "12:30": 35000, "12:45": 38000,
	"13:00": 45000, "13:15": 50000, "13:30": 52000, "13:45": 55000,
	"14:00": 58000, "14:15": 60000, "14:30": 65000, "14:45": 70000,
	"15:00": 85000, "15:15": 90000, "15:30": 95000, "15:45": 100000,
	"16:00": 80000,
}

var nqVolumeCurve = map[string]int64{
	"08:30": 120000, "08:45": 105000,
	"09:00": 95000, "09:15": 85000, "09:30": 78000, "09:45": 72000,
	"10:00": 68000, "10:15": 65000, "10:30": 62000, "10:45": 60000,
	"11:00": 58000, "11:15": 55000, "11:30": 50000, "11:45": 48000,
	"12:00": 45000, "12:15": 45000, "12:30": 45000, "12:45": 48000,
	"13:00": 55000, "13:15": 60000, "13:30": 63000, "13:45": 67000,
	"14:00": 70000, "14:15": 73000, "14:30": 78000, "14:45": 85000,
	"15:00": 100000, "15:15": 110000, "15:30": 115000, "15:45": 120000,
	"16:00": 95000,
}

// ExpectedVolume returns the expected volume for a 15-minute "HH:MM" bucket,
// falling back to 50000 for ES (and unknown instruments) and 60000 for NQ
// when the bucket is not in the curve.
func ExpectedVolume(instrument, bucket string) int64 {
	switch strings.ToUpper(instrument) {
	case "ES":
		if v, ok := esVolumeCurve[bucket]; ok {
			return v
		}
		return 50000
	case "NQ":
		if v, ok := nqVolumeCurve[bucket]; ok {
			return v
		}
		return 60000
	default:
		return 50000
	}
}

// LoadCalibrationFile reads calibration overrides from a YAML file keyed by
// instrument. Each entry is a complete Params record replacing the built-in
// profile; partial overrides are not merged.
func LoadCalibrationFile(path string) (map[string]Params, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calibration file: %w", err)
	}

	var overrides map[string]Params
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parsing calibration file: %w", err)
	}

	normalized := make(map[string]Params, len(overrides))
	for instrument, params := range overrides {
		key := strings.ToUpper(instrument)
		params.Instrument = key
		normalized[key] = params
	}

	return normalized, nil
}
