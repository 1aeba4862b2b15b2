package model

import "time"

// ScreenResult is one matching (ticker, date) row emitted by the screener.
// Ephemeral: produced per screening run, never persisted.
type ScreenResult struct {
	Ticker                string
	Date                  time.Time
	Price                 float64
	Rise22Pct             float64
	Rise67Pct             float64
	ConsolidationRangePct float64
	ADRPct                float64
	VolumeDecline         bool // informational only, not part of the filter
	Breakout              bool
	BreakoutVolume        bool
	Volume                float64
}
