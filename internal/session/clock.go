// Package session maps instants onto ES/NQ trading-session phases.
//
// The contracts trade nearly 24 hours, but microstructure behaves very
// differently across the day, so the classifier needs to know which slice of
// the session it is looking at.
package session

import (
	"fmt"
	"time"
	// Bundled zone database so containers without /usr/share/zoneinfo still
	// resolve Chicago time.
	_ "time/tzdata"

	"github.com/quantfold/weathervane/internal/model"
)

// exchangeTimeZone is Central Time, the primary trading location for ES/NQ.
const exchangeTimeZone = "America/Chicago"

// sessionOpenMinute is 08:30 CT expressed as minutes past local midnight.
const sessionOpenMinute = 8*60 + 30

// phaseInterval is a half-open [start, end) interval in minutes past local
// midnight.
type phaseInterval struct {
	phase model.SessionPhase
	start int
	end   int
}

// Anything outside these intervals is the overnight extended session.
var phaseTable = []phaseInterval{
	{model.PhasePreOpen, 5 * 60, 8*60 + 30},
	{model.PhaseOpeningRange, 8*60 + 30, 9 * 60},
	{model.PhaseMidMorning, 9 * 60, 11*60 + 30},
	{model.PhaseLunch, 11*60 + 30, 13 * 60},
	{model.PhaseMidAfternoon, 13 * 60, 15 * 60},
	{model.PhasePowerHour, 15 * 60, 16 * 60},
	{model.PhaseClose, 16 * 60, 17 * 60},
}

// Clock resolves instants against the exchange trading-hours table. It is
// immutable after construction and safe for concurrent use.
type Clock struct {
	loc *time.Location
}

// NewClock creates a session clock anchored to the exchange time zone.
func NewClock() (*Clock, error) {
	loc, err := time.LoadLocation(exchangeTimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading exchange time zone: %w", err)
	}
	return &Clock{loc: loc}, nil
}

// Phase returns the session phase containing the given instant.
func (c *Clock) Phase(t time.Time) model.SessionPhase {
	local := t.In(c.loc)
	minute := local.Hour()*60 + local.Minute()

	for _, interval := range phaseTable {
		if minute >= interval.start && minute < interval.end {
			return interval.phase
		}
	}

	return model.PhaseExtended
}

// MinutesSinceOpen returns whole minutes elapsed since the 08:30 CT regular
// session open on the instant's local day, clamped to 0 before the open.
func (c *Clock) MinutesSinceOpen(t time.Time) int {
	local := t.In(c.loc)
	minutes := local.Hour()*60 + local.Minute() - sessionOpenMinute
	if minutes < 0 {
		return 0
	}
	return minutes
}

// IsRegularSession reports whether the instant falls inside the day session.
func (c *Clock) IsRegularSession(t time.Time) bool {
	return c.Phase(t) != model.PhaseExtended
}
