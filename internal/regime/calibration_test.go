package regime

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLookup(t *testing.T) {
	es, err := Lookup("ES")
	if err != nil {
		t.Fatalf("Lookup(ES) error: %v", err)
	}
	if es.Instrument != "ES" || es.BalanceThreshold != 60.0 || es.ATRBaseline != 15.0 {
		t.Errorf("unexpected ES calibration: %+v", es)
	}

	nq, err := Lookup("nq")
	if err != nil {
		t.Fatalf("Lookup(nq) error: %v", err)
	}
	if nq.Instrument != "NQ" || nq.BalanceThreshold != 65.0 || nq.VWAPDistanceThreshold != 15.0 {
		t.Errorf("unexpected NQ calibration: %+v", nq)
	}

	if _, err := Lookup("CL"); !errors.Is(err, ErrUnknownInstrument) {
		t.Errorf("Lookup(CL) error = %v, want ErrUnknownInstrument", err)
	}
}

func TestExpectedVolume(t *testing.T) {
	tests := []struct {
		name       string
		instrument string
		bucket     string
		want       int64
	}{
		{"ES open", "ES", "08:30", 100000},
		{"ES case-insensitive", "es", "08:30", 100000},
		{"ES unknown bucket falls back", "ES", "07:00", 50000},
		{"NQ open", "NQ", "08:30", 120000},
		{"NQ unknown bucket falls back", "NQ", "99:99", 60000},
		{"unknown instrument falls back", "CL", "08:30", 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpectedVolume(tt.instrument, tt.bucket); got != tt.want {
				t.Errorf("ExpectedVolume(%q, %q) = %d, want %d", tt.instrument, tt.bucket, got, tt.want)
			}
		})
	}
}

func TestLoadCalibrationFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	content := `es:
  balance_threshold: 55
  imbalance_threshold: 58
  atr_baseline: 12
  atr_extreme_zscore: 2.5
  efficiency_trend_clean: 0.7
  efficiency_trend_weak: 0.5
  overlap_balanced_high: 0.6
  overlap_balanced_low: 0.3
  volume_thin_threshold: 0.7
  volume_heavy_threshold: 1.3
  volatility_compressing: 0.8
  volatility_expanding: 1.2
  vwap_distance_threshold: 4
  confidence_high_separation: 30
  confidence_medium_separation: 15
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	overrides, err := LoadCalibrationFile(path)
	if err != nil {
		t.Fatalf("LoadCalibrationFile() error: %v", err)
	}

	params, ok := overrides["ES"]
	if !ok {
		t.Fatalf("expected key normalized to ES, got %v", overrides)
	}
	if params.Instrument != "ES" {
		t.Errorf("Instrument = %q, want ES", params.Instrument)
	}
	if params.BalanceThreshold != 55 || params.VWAPDistanceThreshold != 4 {
		t.Errorf("override not applied: %+v", params)
	}
}

func TestLoadCalibrationFileMissing(t *testing.T) {
	if _, err := LoadCalibrationFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
