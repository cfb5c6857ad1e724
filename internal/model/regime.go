package model

import "time"

// Regime is the primary market regime classification.
type Regime string

// SecondaryTag refines a primary regime ("tight" balance, "clean" trend, ...).
// Empty for regimes without subtypes.
type SecondaryTag string

// VolatilityState describes short-term vs long-term realized volatility.
type VolatilityState string

// ParticipationState describes volume relative to the time-of-day expectation.
type ParticipationState string

// BalanceState describes how decisively balance or imbalance is winning.
type BalanceState string

// TrendQuality grades directional conviction.
type TrendQuality string

// NoiseLevel grades how trustworthy microstructure reads are right now.
type NoiseLevel string

// SessionPhase is a named slice of the futures trading day.
type SessionPhase string

// OpeningRangePosition locates the current price relative to the opening range.
type OpeningRangePosition string

// String values below are the persisted wire format and must not change:
// downstream consumers match on them verbatim.
const (
	RegimeBalanced       Regime = "Balanced / Rotational"
	RegimeTrend          Regime = "Trend / Initiative"
	RegimeTransition     Regime = "Transition / Breakout Attempt"
	RegimeEventDistorted Regime = "Event-Distorted"

	TagTightBalance     SecondaryTag = "tight"
	TagNormalBalance    SecondaryTag = "normal"
	TagMigratingBalance SecondaryTag = "migrating"
	TagCleanTrend       SecondaryTag = "clean"
	TagGrindingTrend    SecondaryTag = "grinding"
	TagLiquidation      SecondaryTag = "liquidation"

	VolatilityCompressing VolatilityState = "compressing"
	VolatilityNormal      VolatilityState = "normal"
	VolatilityExpanding   VolatilityState = "expanding"
	VolatilityExtreme     VolatilityState = "extreme"

	ParticipationThin   ParticipationState = "thin"
	ParticipationNormal ParticipationState = "normal"
	ParticipationHeavy  ParticipationState = "heavy"

	BalanceBalanced      BalanceState = "balanced"
	BalanceTransitioning BalanceState = "transitioning"
	BalanceImbalanced    BalanceState = "imbalanced"

	TrendNone    TrendQuality = "none"
	TrendWeak    TrendQuality = "weak"
	TrendClean   TrendQuality = "clean"
	TrendExtreme TrendQuality = "extreme"

	NoiseLow    NoiseLevel = "low"
	NoiseMedium NoiseLevel = "medium"
	NoiseHigh   NoiseLevel = "high"

	PhasePreOpen      SessionPhase = "pre_open"
	PhaseOpeningRange SessionPhase = "opening_range"
	PhaseMidMorning   SessionPhase = "mid_morning"
	PhaseLunch        SessionPhase = "lunch"
	PhaseMidAfternoon SessionPhase = "mid_afternoon"
	PhasePowerHour    SessionPhase = "power_hour"
	PhaseClose        SessionPhase = "close"
	PhaseExtended     SessionPhase = "extended"

	ORAboveHigh OpeningRangePosition = "above_orh"
	ORBelowLow  OpeningRangePosition = "below_orl"
	ORInside    OpeningRangePosition = "inside"
)

// ReliabilityNotes maps each primary regime to its standing advisory.
var ReliabilityNotes = map[Regime]string{
	RegimeBalanced:       "Reliable only at range extremes; unreliable mid-range.",
	RegimeTrend:          "Continuation signals favored; fading less reliable.",
	RegimeTransition:     "Signals unreliable until acceptance or failure.",
	RegimeEventDistorted: "All microstructure warped; interpretation degraded.",
}

// RegimeSnapshot is the full classification verdict for one instrument at one
// instant. It is produced once per run and persisted as an append-only audit
// record; nothing in the pipeline ever reads it back.
type RegimeSnapshot struct {
	Instrument         string             `json:"instrument"`
	Timestamp          time.Time          `json:"timestamp"`
	PrimaryRegime      Regime             `json:"primary_regime"`
	SecondaryTag       SecondaryTag       `json:"secondary_tag,omitempty"`
	Confidence         int                `json:"confidence"`
	VolatilityState    VolatilityState    `json:"volatility_state"`
	ParticipationState ParticipationState `json:"participation_state"`
	BalanceState       BalanceState       `json:"balance_state"`
	TrendQuality       TrendQuality       `json:"trend_quality"`
	NoiseLevel         NoiseLevel         `json:"noise_level"`
	SessionPhase       SessionPhase       `json:"session_phase"`
	ReliabilityNote    string             `json:"reliability_note"`
}
