package store

import (
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BreakoutSentinel/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "stocks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func makeBars(start time.Time, closes []float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Date:     start.AddDate(0, 0, i),
			Open:     c * 0.99,
			High:     c * 1.02,
			Low:      c * 0.98,
			Close:    c,
			AdjClose: c,
			Volume:   1_000_000,
		}
	}
	return bars
}

// assertBarsEqual compares bar slices field by field, treating a NaN pair
// (indicator warmup) as equal. reflect-based equality would reject NaN==NaN.
func assertBarsEqual(t *testing.T, want, got []model.Bar) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.Date, g.Date)
		pairs := [][2]float64{
			{w.Open, g.Open}, {w.High, g.High}, {w.Low, g.Low}, {w.Close, g.Close},
			{w.AdjClose, g.AdjClose}, {w.Volume, g.Volume},
			{w.MA10, g.MA10}, {w.EMA12, g.EMA12}, {w.EMA26, g.EMA26},
			{w.MACD, g.MACD}, {w.MACDSignal, g.MACDSignal}, {w.MACDHist, g.MACDHist},
		}
		for _, p := range pairs {
			if math.IsNaN(p[0]) {
				assert.True(t, math.IsNaN(p[1]), "bar %d: want NaN, got %v", i, p[1])
				continue
			}
			assert.InDelta(t, p[0], p[1], 1e-9, "bar %d", i)
		}
	}
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestUpdate_EmptyInput(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.Update("AAPL", nil, "yahoo")
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := s.LastUpdated("AAPL")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpdate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	bars := makeBars(day("2024-01-01"), []float64{10, 11, 12, 13, 14})

	ok, err := s.Update("AAPL", bars, "yahoo")
	require.NoError(t, err)
	assert.True(t, ok)

	first, err := s.FetchRange([]string{"AAPL"}, day("2024-01-01"), day("2024-01-10"))
	require.NoError(t, err)

	ok, err = s.Update("AAPL", bars, "yahoo")
	require.NoError(t, err)
	assert.True(t, ok)

	second, err := s.FetchRange([]string{"AAPL"}, day("2024-01-01"), day("2024-01-10"))
	require.NoError(t, err)

	require.Len(t, second["AAPL"], len(bars))
	assertBarsEqual(t, first["AAPL"], second["AAPL"])
}

func TestLastUpdated_ReflectsFinalBar(t *testing.T) {
	s := newTestStore(t)
	bars := makeBars(day("2024-01-01"), []float64{10, 11, 12, 13, 14})

	_, err := s.Update("MSFT", bars, "alpha_vantage")
	require.NoError(t, err)

	got, found, err := s.LastUpdated("MSFT")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, day("2024-01-05"), got)
}

func TestLastUpdated_FollowsSecondUpdate(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Update("NVDA", makeBars(day("2024-01-01"), []float64{10, 11}), "yahoo")
	require.NoError(t, err)

	got, found, err := s.LastUpdated("NVDA")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, day("2024-01-02"), got)

	// Second update must not serve the stale cached watermark.
	_, err = s.Update("NVDA", makeBars(day("2024-01-03"), []float64{12, 13}), "yahoo")
	require.NoError(t, err)

	got, found, err = s.LastUpdated("NVDA")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, day("2024-01-04"), got)
}

func TestUpdate_WritesThroughWatermarkCache(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Update("AMD", makeBars(day("2024-01-01"), []float64{10, 11}), "yahoo")
	require.NoError(t, err)

	s.cacheMu.RLock()
	cached, ok := s.cache["AMD"]
	s.cacheMu.RUnlock()
	require.True(t, ok, "update must write the watermark through to the cache")
	assert.Equal(t, day("2024-01-02"), cached)

	// A reader that loaded the old metadata row before the update committed
	// resumes and tries to fill the cache; the fresh entry must survive.
	s.fillCache("AMD", day("2023-12-31"))

	got, found, err := s.LastUpdated("AMD")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, day("2024-01-02"), got)
}

func TestFetchRange_OrderAndOmission(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Update("AAPL", makeBars(day("2024-01-01"), []float64{10, 11, 12, 13, 14, 15}), "yahoo")
	require.NoError(t, err)

	got, err := s.FetchRange([]string{"AAPL", "TSLA"}, day("2024-01-02"), day("2024-01-04"))
	require.NoError(t, err)

	require.Contains(t, got, "AAPL")
	assert.NotContains(t, got, "TSLA")

	bars := got["AAPL"]
	require.Len(t, bars, 3)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Date.After(bars[i-1].Date))
	}
	assert.Equal(t, day("2024-01-02"), bars[0].Date)
	assert.Equal(t, day("2024-01-04"), bars[2].Date)
}

func TestUpdate_ComputesIndicators(t *testing.T) {
	s := newTestStore(t)
	closes := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21}
	_, err := s.Update("AAPL", makeBars(day("2024-01-01"), closes), "yahoo")
	require.NoError(t, err)

	got, err := s.FetchRange([]string{"AAPL"}, day("2024-01-01"), day("2024-02-01"))
	require.NoError(t, err)
	bars := got["AAPL"]
	require.Len(t, bars, len(closes))

	// MA10 warmup: NULL on disk, NaN in memory, until the 10th bar.
	assert.True(t, math.IsNaN(bars[8].MA10))
	assert.InDelta(t, 14.5, bars[9].MA10, 1e-9)  // mean of 10..19
	assert.InDelta(t, 15.5, bars[10].MA10, 1e-9) // mean of 11..20

	// EMAs seed with the first close, MACD identities hold on every row.
	assert.InDelta(t, 10.0, bars[0].EMA12, 1e-9)
	for _, b := range bars {
		assert.InDelta(t, b.EMA12-b.EMA26, b.MACD, 1e-9)
		assert.InDelta(t, b.MACD-b.MACDSignal, b.MACDHist, 1e-9)
	}
}

func TestUpdate_ConcurrentTickersStayConsistent(t *testing.T) {
	s := newTestStore(t)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticker := fmt.Sprintf("T%02d", i)
			bars := makeBars(day("2024-01-01"), []float64{10, 11, 12, float64(13 + i)})
			bars = bars[:3+i%2] // stagger final dates across tickers
			_, err := s.Update(ticker, bars, "yahoo")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Each ticker's watermark must match its own final bar, never another's.
	for i := 0; i < n; i++ {
		ticker := fmt.Sprintf("T%02d", i)
		want := day("2024-01-01").AddDate(0, 0, 2+i%2)
		got, found, err := s.LastUpdated(ticker)
		require.NoError(t, err)
		require.True(t, found, ticker)
		assert.Equal(t, want, got, ticker)
	}
}
