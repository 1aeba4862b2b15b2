package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"BreakoutSentinel/internal/config"
	"BreakoutSentinel/internal/fetcher"
	"BreakoutSentinel/internal/scheduler"
	"BreakoutSentinel/internal/screener"
	"BreakoutSentinel/internal/store"
	"BreakoutSentinel/internal/universe"
)

func main() {
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Info().Msg("BreakoutSentinel starting...")

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	sources := []fetcher.Source{fetcher.NewYahooSource(cfg.Proxy)}
	if cfg.DataSource.AlphaVantageKey != "" {
		sources = append(sources, fetcher.NewAlphaVantageSource(cfg.DataSource.AlphaVantageKey, cfg.Proxy))
	} else {
		log.Warn().Msg("no Alpha Vantage key configured, running Yahoo-only")
	}
	multi := fetcher.NewMulti(cfg.DataSource.Retries,
		time.Duration(cfg.DataSource.RetryDelaySeconds)*time.Second, sources...)
	for _, src := range sources {
		log.Info().Str("source", src.Name()).Msg("data source registered")
	}

	scr := screener.New(st)
	res := universe.NewResolver(cfg.Proxy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(ctx, cfg, st, multi, scr, res)
	if err := sched.Register(); err != nil {
		log.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing daily task now")
		go sched.RunNow()
	}

	log.Info().Msg("BreakoutSentinel is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	log.Info().Msg("BreakoutSentinel stopped")
}
