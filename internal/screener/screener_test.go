package screener

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BreakoutSentinel/internal/model"
)

// breakoutSeries builds a 90-bar history: a steady rise from 10 to ~30 over
// the first 60 bars, a flat consolidation at 30, then a breakout bar at index
// 85 closing at 32 on 2.5x volume.
func breakoutSeries() []model.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, 90)
	for i := range bars {
		var c float64
		switch {
		case i < 60:
			c = 10 + 20*float64(i)/59
		case i < 85:
			c = 30
		case i == 85:
			c = 32
		default:
			c = 31.5
		}
		vol := 1_000_000.0
		if i == 85 {
			vol = 2_500_000
		}
		bars[i] = model.Bar{
			Date:     start.AddDate(0, 0, i),
			Open:     c,
			High:     c * 1.02,
			Low:      c * 0.98,
			Close:    c,
			AdjClose: c,
			Volume:   vol,
		}
	}
	return bars
}

func looseParams() Params {
	p := DefaultParams()
	p.MinRise22 = 5
	return p
}

func TestAnalyze_InsufficientHistorySkipped(t *testing.T) {
	p := DefaultParams() // needs 20+10+30 = 60 bars
	bars := breakoutSeries()[:59]

	assert.Nil(t, Analyze("SHORT", bars, p))
}

func TestAnalyze_SyntheticBreakoutDetected(t *testing.T) {
	bars := breakoutSeries()
	breakoutDate := bars[85].Date

	results := Analyze("TEST", bars, looseParams())
	require.NotEmpty(t, results)

	var hit *model.ScreenResult
	for i := range results {
		if results[i].Date.Equal(breakoutDate) {
			hit = &results[i]
			break
		}
	}
	require.NotNil(t, hit, "breakout date missing from results")
	assert.True(t, hit.Breakout)
	assert.True(t, hit.BreakoutVolume)
	assert.InDelta(t, 32.0, hit.Price, 1e-9)
	assert.Greater(t, hit.Rise67Pct, 40.0)
	assert.LessOrEqual(t, hit.ConsolidationRangePct, 10.0)
}

func TestAnalyze_NoWarmupDates(t *testing.T) {
	bars := breakoutSeries()
	results := Analyze("TEST", bars, looseParams())

	// rise67 needs 67 prior bars; nothing before that can satisfy the mask.
	earliest := bars[67].Date
	for _, r := range results {
		assert.False(t, r.Date.Before(earliest), "warmup date %s leaked into results", r.Date)
	}
}

func TestAnalyze_MaxRangeBoundaryInclusive(t *testing.T) {
	bars := breakoutSeries()
	breakoutDate := bars[85].Date

	// Establish the exact consolidation range at the breakout date.
	wide := looseParams()
	wide.MaxRange = 100
	var rangeAtBreakout float64
	for _, r := range Analyze("TEST", bars, wide) {
		if r.Date.Equal(breakoutDate) {
			rangeAtBreakout = r.ConsolidationRangePct
		}
	}
	require.Greater(t, rangeAtBreakout, 0.0)

	contains := func(p Params) bool {
		for _, r := range Analyze("TEST", bars, p) {
			if r.Date.Equal(breakoutDate) {
				return true
			}
		}
		return false
	}

	exact := looseParams()
	exact.MaxRange = rangeAtBreakout
	assert.True(t, contains(exact), "row equal to max_range must be included")

	below := looseParams()
	below.MaxRange = rangeAtBreakout - 1e-6
	assert.False(t, contains(below), "row above max_range must be excluded")
}

func TestAnalyze_VolumeDeclineComputedButNotFiltered(t *testing.T) {
	bars := breakoutSeries()
	results := Analyze("TEST", bars, looseParams())
	require.NotEmpty(t, results)

	// Constant volume throughout: the decline flag is false, yet rows still
	// match because the flag never participates in the mask.
	found := false
	for _, r := range results {
		if r.Date.Equal(bars[70].Date) {
			found = true
			assert.False(t, r.VolumeDecline)
		}
	}
	assert.True(t, found)
}

type fakeStore struct {
	data map[string][]model.Bar
}

func (f *fakeStore) LastUpdated(string) (time.Time, bool, error) { return time.Time{}, false, nil }
func (f *fakeStore) Update(string, []model.Bar, string) (bool, error) {
	return false, nil
}
func (f *fakeStore) FetchRange([]string, time.Time, time.Time) (map[string][]model.Bar, error) {
	return f.data, nil
}
func (f *fakeStore) Close() error { return nil }

func TestScreen_FansOutAndSkipsShortHistories(t *testing.T) {
	st := &fakeStore{data: map[string][]model.Bar{
		"LONG1": breakoutSeries(),
		"LONG2": breakoutSeries(),
		"SHORT": breakoutSeries()[:40],
	}}
	s := New(st)

	results, err := s.Screen(context.Background(), []string{"LONG1", "LONG2", "SHORT"}, looseParams())
	require.NoError(t, err)
	require.NotEmpty(t, results)

	seen := map[string]bool{}
	for _, r := range results {
		seen[r.Ticker] = true
	}
	assert.True(t, seen["LONG1"])
	assert.True(t, seen["LONG2"])
	assert.False(t, seen["SHORT"], "ticker below the history floor must contribute nothing")
}
