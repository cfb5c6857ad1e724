package regime

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/weathervane/internal/model"
)

// Classifier turns a FeatureVector into a RegimeSnapshot via a deterministic
// scoring and decision procedure. It is total: any valid feature vector
// yields a complete verdict.
type Classifier struct {
	instrument string
	calib      Params
	now        func() time.Time
	logger     zerolog.Logger
}

// NewClassifier creates a regime classifier for one instrument. A nil now
// falls back to wall-clock time.
func NewClassifier(instrument string, calib Params, now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{
		instrument: instrument,
		calib:      calib,
		now:        now,
		logger:     log.With().Str("component", "regime_classifier").Str("instrument", instrument).Logger(),
	}
}

// Classify runs the full decision procedure: score balance and imbalance,
// decide the primary regime, grade volatility, participation, balance state,
// trend quality, confidence and noise, and attach the advisory note. The
// snapshot timestamp is the classification instant in UTC, not a candle time.
func (c *Classifier) Classify(features *model.FeatureVector) *model.RegimeSnapshot {
	balanceScore := c.balanceScore(features)
	imbalanceScore := c.imbalanceScore(features)

	c.logger.Debug().
		Float64("balance_score", balanceScore).
		Float64("imbalance_score", imbalanceScore).
		Msg("Scores calculated")

	primary, secondary := c.primaryRegime(balanceScore, imbalanceScore, features)
	confidence := c.confidence(balanceScore, imbalanceScore, features)

	snapshot := &model.RegimeSnapshot{
		Instrument:         c.instrument,
		Timestamp:          c.now().UTC(),
		PrimaryRegime:      primary,
		SecondaryTag:       secondary,
		Confidence:         confidence,
		VolatilityState:    c.volatilityState(features),
		ParticipationState: c.participationState(features),
		BalanceState:       balanceState(balanceScore, imbalanceScore),
		TrendQuality:       c.trendQuality(features, primary),
		NoiseLevel:         noiseLevel(features, confidence),
		SessionPhase:       features.SessionPhase,
		ReliabilityNote:    reliabilityNote(primary, features.SessionPhase),
	}

	c.logger.Info().
		Str("regime", string(primary)).
		Str("tag", string(secondary)).
		Int("confidence", confidence).
		Msg("Regime classified")

	return snapshot
}

// balanceScore scores rotational character 0-100: high bar overlap (30),
// proximity to VWAP (20), low directional efficiency (30) and a normal
// session range (20).
func (c *Classifier) balanceScore(f *model.FeatureVector) float64 {
	overlapScore := math.Min(f.BarOverlapRatio/c.calib.OverlapBalancedHigh, 1.0) * 30

	vwapScore := (1.0 - math.Min(f.VWAPDistance/c.calib.VWAPDistanceThreshold, 1.0)) * 20

	efficiencyScore := (1.0 - f.DirectionalEfficiency) * 30

	rangeScore := math.Max(0, 20-math.Abs(f.HistoricalRangeZScore)*5)

	return clampScore(overlapScore + vwapScore + efficiencyScore + rangeScore)
}

// imbalanceScore scores initiative character 0-100: directional efficiency
// (40), VWAP slope magnitude (30), shallow pullbacks (20) and range
// expansion (10).
func (c *Classifier) imbalanceScore(f *model.FeatureVector) float64 {
	efficiencyScore := f.DirectionalEfficiency * 40

	slopeScore := math.Min(math.Abs(f.VWAPSlope)*100, 1.0) * 30

	pullbackScore := math.Max(0, (2.0-f.AveragePullbackDepth)/2.0) * 20

	rangeScore := math.Max(0, math.Min(f.HistoricalRangeZScore, 2.0)) * 5

	return clampScore(efficiencyScore + slopeScore + pullbackScore + rangeScore)
}

// primaryRegime decides the headline label. Strict inequalities on both the
// threshold and the opposing score mean a tie falls through to Transition.
func (c *Classifier) primaryRegime(balanceScore, imbalanceScore float64, f *model.FeatureVector) (model.Regime, model.SecondaryTag) {
	switch {
	case balanceScore > c.calib.BalanceThreshold && balanceScore > imbalanceScore:
		return model.RegimeBalanced, c.balanceSubtype(f)
	case imbalanceScore > c.calib.ImbalanceThreshold && imbalanceScore > balanceScore:
		return model.RegimeTrend, c.trendSubtype(f)
	default:
		return model.RegimeTransition, ""
	}
}

func (c *Classifier) balanceSubtype(f *model.FeatureVector) model.SecondaryTag {
	switch {
	case f.BarOverlapRatio > 0.70 && f.ATR14 < c.calib.ATRBaseline*0.8:
		return model.TagTightBalance
	case math.Abs(f.VWAPSlope) > 0.001:
		return model.TagMigratingBalance
	default:
		return model.TagNormalBalance
	}
}

func (c *Classifier) trendSubtype(f *model.FeatureVector) model.SecondaryTag {
	switch {
	case f.DirectionalEfficiency > 0.85 && f.HistoricalRangeZScore > 2.0:
		return model.TagLiquidation
	case f.DirectionalEfficiency > c.calib.EfficiencyTrendClean:
		return model.TagCleanTrend
	default:
		return model.TagGrindingTrend
	}
}

func (c *Classifier) volatilityState(f *model.FeatureVector) model.VolatilityState {
	switch {
	case f.HistoricalRangeZScore > c.calib.ATRExtremeZScore:
		return model.VolatilityExtreme
	case f.VolatilityRatio < c.calib.VolatilityCompressing && f.ATRSlope < 0:
		return model.VolatilityCompressing
	case f.VolatilityRatio > c.calib.VolatilityExpanding && f.ATRSlope > 0:
		return model.VolatilityExpanding
	default:
		return model.VolatilityNormal
	}
}

func (c *Classifier) participationState(f *model.FeatureVector) model.ParticipationState {
	switch {
	case f.VolumeRatio < c.calib.VolumeThinThreshold:
		return model.ParticipationThin
	case f.VolumeRatio > c.calib.VolumeHeavyThreshold:
		return model.ParticipationHeavy
	default:
		return model.ParticipationNormal
	}
}

// balanceState grades how decisively one score is winning: a gap over 15
// points commits to balanced or imbalanced, anything closer is transitioning.
func balanceState(balanceScore, imbalanceScore float64) model.BalanceState {
	diff := math.Abs(balanceScore - imbalanceScore)

	switch {
	case balanceScore > imbalanceScore && diff > 15:
		return model.BalanceBalanced
	case imbalanceScore > balanceScore && diff > 15:
		return model.BalanceImbalanced
	default:
		return model.BalanceTransitioning
	}
}

func (c *Classifier) trendQuality(f *model.FeatureVector, primary model.Regime) model.TrendQuality {
	if primary != model.RegimeTrend {
		if f.DirectionalEfficiency > c.calib.EfficiencyTrendWeak {
			return model.TrendWeak
		}
		return model.TrendNone
	}

	switch {
	case f.DirectionalEfficiency > 0.85 && f.HistoricalRangeZScore > 2.0:
		return model.TrendExtreme
	case f.DirectionalEfficiency > c.calib.EfficiencyTrendClean:
		return model.TrendClean
	case f.DirectionalEfficiency > c.calib.EfficiencyTrendWeak:
		return model.TrendWeak
	default:
		return model.TrendNone
	}
}

// confidence starts from the score separation tier and adjusts for feature
// agreement, session phase and conflicting volatility signals. The two
// agreement bonuses are evaluated independently; their guards cannot both
// hold at once.
func (c *Classifier) confidence(balanceScore, imbalanceScore float64, f *model.FeatureVector) int {
	separation := math.Abs(balanceScore - imbalanceScore)

	confidence := 40
	if separation > c.calib.ConfidenceHighSeparation {
		confidence = 80
	} else if separation > c.calib.ConfidenceMediumSeparation {
		confidence = 60
	}

	if f.BarOverlapRatio > 0.6 && f.DirectionalEfficiency < 0.5 {
		confidence += 10 // features agree on balance
	}
	if f.BarOverlapRatio < 0.4 && f.DirectionalEfficiency > 0.7 {
		confidence += 10 // features agree on trend
	}

	switch f.SessionPhase {
	case model.PhaseLunch, model.PhaseExtended, model.PhasePreOpen:
		confidence -= 10
	}

	if f.VolatilityRatio > 1.2 && f.ATRSlope < 0 {
		confidence -= 5
	}

	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}

func noiseLevel(f *model.FeatureVector, confidence int) model.NoiseLevel {
	switch {
	case confidence > 75 && f.HistoricalRangeZScore < 1.5:
		return model.NoiseLow
	case confidence < 50 || f.HistoricalRangeZScore > 2.5:
		return model.NoiseHigh
	default:
		return model.NoiseMedium
	}
}

// reliabilityNote appends a session caveat to the per-regime advisory when
// the phase warps liquidity or volatility.
func reliabilityNote(primary model.Regime, phase model.SessionPhase) string {
	note, ok := model.ReliabilityNotes[primary]
	if !ok {
		note = "Conditions unclear; exercise caution."
	}

	switch phase {
	case model.PhaseLunch:
		note += " Lunch session: lower liquidity increases noise."
	case model.PhaseOpeningRange:
		note += " Opening range: wait for acceptance."
	case model.PhasePowerHour:
		note += " Power hour: increased volatility and volume."
	}

	return note
}

// clampScore bounds a component sum to [0, 100].
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
