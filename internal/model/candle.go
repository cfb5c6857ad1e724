package model

import "time"

// Candle represents a single OHLCV price candle.
type Candle struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Range returns the high-to-low span of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// TypicalPrice is the (high + low + close) / 3 price used for VWAP.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}
