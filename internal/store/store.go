package store

import (
	"time"

	"BreakoutSentinel/internal/model"
)

// Store persists per-ticker daily bars with derived indicators and the
// per-ticker incremental-update watermark.
type Store interface {
	// LastUpdated returns the watermark for a ticker, or ok=false when the
	// ticker has never been updated.
	LastUpdated(ticker string) (t time.Time, ok bool, err error)
	// Update computes indicators for the batch, upserts every bar keyed by
	// (date, ticker) and overwrites the ticker's metadata row. Returns false
	// on empty input without touching storage.
	Update(ticker string, bars []model.Bar, source string) (bool, error)
	// FetchRange returns stored bars per ticker within [start, end], ordered
	// by date. Tickers with no rows in range are omitted.
	FetchRange(tickers []string, start, end time.Time) (map[string][]model.Bar, error)
	Close() error
}
