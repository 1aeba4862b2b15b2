package screener

import (
	"github.com/rs/zerolog/log"

	"BreakoutSentinel/internal/calculator"
	"BreakoutSentinel/internal/model"
)

// minExtraBars is the padding beyond the prior and consolidation windows a
// ticker must have before its indicators are considered stable.
const minExtraBars = 30

// Analyze runs the breakout screen over one ticker's ordered history.
// Tickers with insufficient history are skipped (nil result, not an error).
// Warmup rows carry NaN signal values and never satisfy the filter mask.
func Analyze(ticker string, bars []model.Bar, p Params) []model.ScreenResult {
	if len(bars) < p.PriorDays+p.ConsolDays+minExtraBars {
		log.Warn().Str("ticker", ticker).Int("bars", len(bars)).Msg("insufficient history, skipping")
		return nil
	}

	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
	}

	rise22 := calculator.PctChange(closes, 22)
	rise67 := calculator.PctChange(closes, 67)

	recentHigh := calculator.RollingMax(closes, p.ConsolDays)
	recentLow := calculator.RollingMin(closes, p.ConsolDays)

	// Trading-activity contraction during the consolidation, relative to the
	// prior leg. Carried on result rows but deliberately absent from the
	// filter mask.
	volConsol := calculator.RollingMean(volumes, p.ConsolDays)
	volPrior := calculator.RollingMean(calculator.Shift(volumes, p.ConsolDays), p.PriorDays)

	prevClose := calculator.Shift(closes, 1)
	dailyRange := make([]float64, n)
	for i := range dailyRange {
		dailyRange[i] = (highs[i] - lows[i]) / prevClose[i]
	}
	adr := calculator.RollingMean(dailyRange, p.PriorDays)

	vol10 := calculator.RollingMean(volumes, 10)

	var results []model.ScreenResult
	for i := 0; i < n; i++ {
		consolRange := (recentHigh[i]/recentLow[i] - 1) * 100
		adrPct := adr[i] * 100

		// NaN warmup values fail every comparison, dropping the row.
		if !(rise22[i] >= p.MinRise22 &&
			rise67[i] >= p.MinRise67 &&
			consolRange <= p.MaxRange &&
			adrPct >= p.MinADR) {
			continue
		}

		breakout := i > 0 &&
			closes[i] > recentHigh[i-1] &&
			closes[i-1] <= recentHigh[i-1]
		breakoutVolume := volumes[i] > vol10[i]*1.5

		results = append(results, model.ScreenResult{
			Ticker:                ticker,
			Date:                  bars[i].Date,
			Price:                 closes[i],
			Rise22Pct:             rise22[i],
			Rise67Pct:             rise67[i],
			ConsolidationRangePct: consolRange,
			ADRPct:                adrPct,
			VolumeDecline:         volConsol[i] < volPrior[i],
			Breakout:              breakout,
			BreakoutVolume:        breakoutVolume,
			Volume:                volumes[i],
		})
	}
	return results
}
