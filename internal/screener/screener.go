// Package screener scans stored ticker histories for the breakout setup:
// a sharp prior rise, a tight consolidation and a volume-confirmed move above
// the consolidation high.
package screener

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"BreakoutSentinel/internal/model"
	"BreakoutSentinel/internal/store"
)

// Params are the screening thresholds. Rolling windows are in trading days;
// percentage thresholds compare inclusively.
type Params struct {
	PriorDays    int
	ConsolDays   int
	MinRise22    float64
	MinRise67    float64
	MaxRange     float64
	MinADR       float64
	Workers      int
	LookbackDays int
}

// DefaultParams mirrors the stock screen defaults: 20-day prior leg, 10-day
// consolidation, 10%/40% minimum rises, 10% maximum range, 2% minimum ADR.
func DefaultParams() Params {
	return Params{
		PriorDays:    20,
		ConsolDays:   10,
		MinRise22:    10,
		MinRise67:    40,
		MaxRange:     10,
		MinADR:       2,
		Workers:      4,
		LookbackDays: 180,
	}
}

// Screener reads stored series and emits matching (ticker, date) rows.
type Screener struct {
	store store.Store
}

func New(st store.Store) *Screener {
	return &Screener{store: st}
}

// Screen analyzes each ticker's stored history over the lookback window with
// a bounded worker pool. Result ordering across tickers is incidental. A
// single ticker's failure is logged and excluded; it never aborts the batch.
func (s *Screener) Screen(ctx context.Context, tickers []string, p Params) ([]model.ScreenResult, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -p.LookbackDays)

	data, err := s.store.FetchRange(tickers, start, end)
	if err != nil {
		return nil, fmt.Errorf("load stored bars: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if p.Workers > 0 {
		g.SetLimit(p.Workers)
	}

	var mu sync.Mutex
	var results []model.ScreenResult
	for ticker, bars := range data {
		ticker, bars := ticker, bars
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Str("ticker", ticker).Any("panic", r).Msg("analysis failed")
				}
			}()
			if err := ctx.Err(); err != nil {
				return err
			}
			rows := Analyze(ticker, bars, p)
			if len(rows) == 0 {
				return nil
			}
			mu.Lock()
			results = append(results, rows...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info().Int("tickers", len(data)).Int("matches", len(results)).Msg("screen complete")
	return results, nil
}
