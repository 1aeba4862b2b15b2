package model

import "time"

// Bar represents one daily candlestick with its derived indicators.
// Indicator fields are NaN until their warmup window fills; the store maps
// NaN to NULL on disk and back.
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64

	MA10       float64
	EMA12      float64
	EMA26      float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
}

// TickerMeta tracks the incremental-update watermark for one ticker.
// Overwritten on every successful update.
type TickerMeta struct {
	Ticker      string
	LastUpdated time.Time
	Source      string
}
