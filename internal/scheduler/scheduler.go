// Package scheduler drives the daily pipeline: refresh stored history for
// the configured universe, run the breakout screen, then write the report
// and charts.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"BreakoutSentinel/internal/chart"
	"BreakoutSentinel/internal/config"
	"BreakoutSentinel/internal/fetcher"
	"BreakoutSentinel/internal/model"
	"BreakoutSentinel/internal/report"
	"BreakoutSentinel/internal/screener"
	"BreakoutSentinel/internal/store"
	"BreakoutSentinel/internal/universe"
)

// Scheduler manages the daily cron task.
type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	store    store.Store
	fetcher  *fetcher.Multi
	screener *screener.Screener
	resolver *universe.Resolver
	limiter  *rate.Limiter
	ctx      context.Context
}

// New creates a Scheduler. Provider calls are paced by a shared rate limiter.
func New(ctx context.Context, cfg *config.Config, st store.Store, f *fetcher.Multi,
	scr *screener.Screener, res *universe.Resolver) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		cfg:      cfg,
		store:    st,
		fetcher:  f,
		screener: scr,
		resolver: res,
		limiter:  rate.NewLimiter(rate.Limit(cfg.DataSource.RequestsPerSecond), 1),
		ctx:      ctx,
	}
}

// Register registers the daily update-and-screen task.
func (s *Scheduler) Register() error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule.DailyCron, s.runDaily); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Str("cron", s.cfg.Schedule.DailyCron).Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes the daily task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.runDaily()
}

func (s *Scheduler) runDaily() {
	log.Info().Msg("running daily update and screen")

	tickers, err := s.resolver.Resolve(s.ctx, s.cfg.Universe.Index, s.cfg.Universe.Tickers)
	if err != nil {
		log.Error().Err(err).Str("index", s.cfg.Universe.Index).Msg("resolve universe")
		return
	}
	log.Info().Int("tickers", len(tickers)).Str("index", s.cfg.Universe.Index).Msg("universe resolved")

	s.updateAll(tickers)

	results, err := s.screener.Screen(s.ctx, tickers, screener.Params{
		PriorDays:    s.cfg.Screen.PriorDays,
		ConsolDays:   s.cfg.Screen.ConsolDays,
		MinRise22:    s.cfg.Screen.MinRise22,
		MinRise67:    s.cfg.Screen.MinRise67,
		MaxRange:     s.cfg.Screen.MaxRange,
		MinADR:       s.cfg.Screen.MinADR,
		Workers:      s.cfg.Screen.Workers,
		LookbackDays: s.cfg.Screen.LookbackDays,
	})
	if err != nil {
		log.Error().Err(err).Msg("screen failed")
		return
	}

	log.Info().Msg(report.Summary(results, s.fetcher.Stats()))
	if len(results) == 0 {
		log.Info().Msg("no tickers matched the screen")
	}

	if err := s.writeOutputs(results); err != nil {
		log.Error().Err(err).Msg("write outputs")
	}
}

// updateAll incrementally refreshes stored history for every ticker: fetch
// from the day after the stored watermark (or the initial lookback for new
// tickers) through today.
func (s *Scheduler) updateAll(tickers []string) {
	end := time.Now()
	var updated, current, failed int

	for _, ticker := range tickers {
		if err := s.limiter.Wait(s.ctx); err != nil {
			log.Warn().Err(err).Msg("update pass cancelled")
			return
		}

		start := end.AddDate(0, 0, -s.cfg.DataSource.InitialLookbackDays)
		if last, ok, err := s.store.LastUpdated(ticker); err != nil {
			log.Error().Str("ticker", ticker).Err(err).Msg("read watermark")
			failed++
			continue
		} else if ok {
			start = last.AddDate(0, 0, 1)
		}
		if start.After(end) {
			current++
			continue
		}

		bars, source := s.fetcher.Fetch(s.ctx, ticker, start, end)
		if source == fetcher.SourceFailed {
			failed++
			continue
		}
		if _, err := s.store.Update(ticker, bars, source); err != nil {
			log.Error().Str("ticker", ticker).Err(err).Msg("store update")
			failed++
			continue
		}
		updated++
	}

	log.Info().Int("updated", updated).Int("current", current).Int("failed", failed).
		Msg("update pass finished")
}

// writeOutputs writes the CSV result table plus charts for the latest date's
// top risers and volume-confirmed breakouts.
func (s *Scheduler) writeOutputs(results []model.ScreenResult) error {
	if err := os.MkdirAll(s.cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	csvPath := filepath.Join(s.cfg.Output.Dir,
		fmt.Sprintf("results_%s.csv", time.Now().Format("2006-01-02")))
	if err := report.WriteCSV(csvPath, results); err != nil {
		return err
	}
	log.Info().Str("path", csvPath).Msg("result table written")
	if len(results) == 0 {
		return nil
	}

	latest := report.Latest(results)
	s.renderCharts("top", report.TopByRise(latest, s.cfg.Output.TopCharts))
	s.renderCharts("breakout", report.Breakouts(latest))
	return nil
}

func (s *Scheduler) renderCharts(prefix string, tickers []string) {
	if len(tickers) == 0 {
		return
	}
	end := time.Now()
	start := end.AddDate(0, 0, -s.cfg.Screen.LookbackDays)
	data, err := s.store.FetchRange(tickers, start, end)
	if err != nil {
		log.Error().Err(err).Str("charts", prefix).Msg("load chart bars")
		return
	}

	for _, ticker := range tickers {
		bars := data[ticker]
		if len(bars) == 0 {
			continue
		}
		png, err := chart.RenderCloses(ticker, bars)
		if err != nil {
			log.Warn().Str("ticker", ticker).Err(err).Msg("render chart")
			continue
		}
		path := filepath.Join(s.cfg.Output.Dir, fmt.Sprintf("%s_%s.png", prefix, ticker))
		if err := os.WriteFile(path, png, 0o644); err != nil {
			log.Warn().Str("path", path).Err(err).Msg("write chart")
		}
	}
}
