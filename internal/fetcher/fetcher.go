package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"BreakoutSentinel/internal/model"
)

// SourceFailed is the sentinel source label returned when every source has
// been exhausted. It is the only failure signal of Multi.Fetch.
const SourceFailed = "failed"

// Source fetches raw daily OHLCV bars for one ticker and date range.
// Implementations must return bars in chronological order with the canonical
// Open/High/Low/Close/AdjClose/Volume fields populated.
type Source interface {
	Fetch(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, error)
	Name() string
}

// Multi tries sources in fixed priority order with linear-backoff retries.
type Multi struct {
	sources []Source
	retries int
	delay   time.Duration

	mu    sync.Mutex
	stats map[string]int
}

// NewMulti creates a multi-source fetcher. Sources are tried in the order
// given.
func NewMulti(retries int, delay time.Duration, sources ...Source) *Multi {
	stats := make(map[string]int, len(sources))
	for _, src := range sources {
		stats[src.Name()] = 0
	}
	return &Multi{sources: sources, retries: retries, delay: delay, stats: stats}
}

// Fetch returns the first non-empty result across sources along with the
// source label, retrying the whole source list up to the configured attempt
// count. Individual source errors are logged, never returned; after
// exhausting all attempts the result is (nil, SourceFailed).
func (m *Multi) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, string) {
	for attempt := 0; attempt < m.retries; attempt++ {
		for _, src := range m.sources {
			bars, err := src.Fetch(ctx, ticker, start, end)
			if err != nil {
				log.Warn().Str("ticker", ticker).Str("source", src.Name()).
					Int("attempt", attempt+1).Err(err).Msg("fetch attempt failed")
				if !m.backoff(ctx, attempt) {
					return nil, SourceFailed
				}
				continue
			}
			if len(bars) == 0 {
				continue
			}
			m.mu.Lock()
			m.stats[src.Name()]++
			m.mu.Unlock()
			return bars, src.Name()
		}
	}
	log.Error().Str("ticker", ticker).Msg("all fetch attempts failed")
	return nil, SourceFailed
}

// backoff sleeps delay*(attempt+1), returning false if the context was
// cancelled first.
func (m *Multi) backoff(ctx context.Context, attempt int) bool {
	t := time.NewTimer(m.delay * time.Duration(attempt+1))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Stats returns cumulative successful-call counts per source.
func (m *Multi) Stats() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.stats))
	for k, v := range m.stats {
		out[k] = v
	}
	return out
}

// MockSource returns controllable fixed data for development and testing.
type MockSource struct {
	Bars  []model.Bar
	Err   error
	Calls int
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Fetch(_ context.Context, _ string, _, _ time.Time) ([]model.Bar, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Bars, nil
}
