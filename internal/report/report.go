// Package report turns screen results into user-facing output: the CSV
// result table, a log summary, and the ticker selections the charts render.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"BreakoutSentinel/internal/model"
)

// Latest returns the rows at the most recent date present in the results.
func Latest(results []model.ScreenResult) []model.ScreenResult {
	var max time.Time
	for _, r := range results {
		if r.Date.After(max) {
			max = r.Date
		}
	}
	var out []model.ScreenResult
	for _, r := range results {
		if r.Date.Equal(max) {
			out = append(out, r)
		}
	}
	return out
}

// TopByRise returns up to n unique tickers ordered by descending 22-day rise.
func TopByRise(results []model.ScreenResult, n int) []string {
	sorted := append([]model.ScreenResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rise22Pct > sorted[j].Rise22Pct })

	seen := make(map[string]bool)
	var out []string
	for _, r := range sorted {
		if seen[r.Ticker] {
			continue
		}
		seen[r.Ticker] = true
		out = append(out, r.Ticker)
		if len(out) == n {
			break
		}
	}
	return out
}

// Breakouts returns the unique tickers whose rows show a volume-confirmed
// breakout.
func Breakouts(results []model.ScreenResult) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range results {
		if r.Breakout && r.BreakoutVolume && !seen[r.Ticker] {
			seen[r.Ticker] = true
			out = append(out, r.Ticker)
		}
	}
	return out
}

// WriteCSV writes all result rows, newest dates first, ties broken by ticker.
// An empty result set still produces a header-only file.
func WriteCSV(path string, results []model.ScreenResult) error {
	sorted := append([]model.ScreenResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].Ticker < sorted[j].Ticker
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"Ticker", "Date", "Price",
		"Prior_Rise_22_%", "Prior_Rise_67_%", "Consolidation_Range_%", "ADR_%",
		"Breakout", "Breakout_Volume", "Volume", "Volume_Decline",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range sorted {
		row := []string{
			r.Ticker,
			r.Date.Format("2006-01-02"),
			strconv.FormatFloat(r.Price, 'f', 2, 64),
			strconv.FormatFloat(r.Rise22Pct, 'f', 2, 64),
			strconv.FormatFloat(r.Rise67Pct, 'f', 2, 64),
			strconv.FormatFloat(r.ConsolidationRangePct, 'f', 2, 64),
			strconv.FormatFloat(r.ADRPct, 'f', 2, 64),
			strconv.FormatBool(r.Breakout),
			strconv.FormatBool(r.BreakoutVolume),
			strconv.FormatFloat(r.Volume, 'f', 0, 64),
			strconv.FormatBool(r.VolumeDecline),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// Summary formats a one-line run summary with per-source fetch counts.
func Summary(results []model.ScreenResult, stats map[string]int) string {
	tickers := make(map[string]bool)
	for _, r := range results {
		tickers[r.Ticker] = true
	}

	sources := make([]string, 0, len(stats))
	for name := range stats {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	s := fmt.Sprintf("%d matching rows across %d tickers", len(results), len(tickers))
	for _, name := range sources {
		s += fmt.Sprintf(" | %s: %d", name, stats[name])
	}
	return s
}
