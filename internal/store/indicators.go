package store

import (
	"BreakoutSentinel/internal/calculator"
	"BreakoutSentinel/internal/model"
)

// applyIndicators fills the derived-indicator fields of the batch in place:
// 10-day SMA of close, 12/26 EMAs, MACD line, 9-period signal and histogram.
// The series are computed over this batch alone, so an incremental update
// re-seeds the EMAs from the first bar of the batch.
func applyIndicators(bars []model.Bar) {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	ma10 := calculator.RollingMean(closes, 10)
	ema12 := calculator.EMA(closes, 12)
	ema26 := calculator.EMA(closes, 26)
	macd, signal, hist := calculator.MACD(closes)

	for i := range bars {
		bars[i].MA10 = ma10[i]
		bars[i].EMA12 = ema12[i]
		bars[i].EMA26 = ema26[i]
		bars[i].MACD = macd[i]
		bars[i].MACDSignal = signal[i]
		bars[i].MACDHist = hist[i]
	}
}
