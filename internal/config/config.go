package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Universe struct {
		Index   string   `yaml:"index"` // nasdaq100, sp500 or custom
		Tickers []string `yaml:"tickers"`
	} `yaml:"universe"`
	DataSource struct {
		AlphaVantageKey     string  `yaml:"alpha_vantage_key"`
		Retries             int     `yaml:"retries"`
		RetryDelaySeconds   int     `yaml:"retry_delay_seconds"`
		RequestsPerSecond   float64 `yaml:"requests_per_second"`
		InitialLookbackDays int     `yaml:"initial_lookback_days"`
	} `yaml:"data_source"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Screen struct {
		PriorDays    int     `yaml:"prior_days"`
		ConsolDays   int     `yaml:"consol_days"`
		MinRise22    float64 `yaml:"min_rise_22"`
		MinRise67    float64 `yaml:"min_rise_67"`
		MaxRange     float64 `yaml:"max_range"`
		MinADR       float64 `yaml:"min_adr"`
		Workers      int     `yaml:"workers"`
		LookbackDays int     `yaml:"lookback_days"`
	} `yaml:"screen"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Output struct {
		Dir       string `yaml:"dir"`
		TopCharts int    `yaml:"top_charts"`
	} `yaml:"output"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("ALPHA_VANTAGE_KEY"); v != "" {
		cfg.DataSource.AlphaVantageKey = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("UNIVERSE_INDEX"); v != "" {
		cfg.Universe.Index = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SCREEN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Screen.Workers = n
		}
	}

	// Defaults
	if cfg.Universe.Index == "" {
		cfg.Universe.Index = "nasdaq100"
	}
	if cfg.DataSource.Retries == 0 {
		cfg.DataSource.Retries = 3
	}
	if cfg.DataSource.RetryDelaySeconds == 0 {
		cfg.DataSource.RetryDelaySeconds = 5
	}
	if cfg.DataSource.RequestsPerSecond == 0 {
		cfg.DataSource.RequestsPerSecond = 2
	}
	if cfg.DataSource.InitialLookbackDays == 0 {
		cfg.DataSource.InitialLookbackDays = 365
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stocks.db"
	}
	if cfg.Screen.PriorDays == 0 {
		cfg.Screen.PriorDays = 20
	}
	if cfg.Screen.ConsolDays == 0 {
		cfg.Screen.ConsolDays = 10
	}
	if cfg.Screen.MinRise22 == 0 {
		cfg.Screen.MinRise22 = 10
	}
	if cfg.Screen.MinRise67 == 0 {
		cfg.Screen.MinRise67 = 40
	}
	if cfg.Screen.MaxRange == 0 {
		cfg.Screen.MaxRange = 10
	}
	if cfg.Screen.MinADR == 0 {
		cfg.Screen.MinADR = 2
	}
	if cfg.Screen.Workers == 0 {
		cfg.Screen.Workers = 4
	}
	if cfg.Screen.LookbackDays == 0 {
		cfg.Screen.LookbackDays = 180
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 30 22 * * 1-5" // after US close, weekdays
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "output"
	}
	if cfg.Output.TopCharts == 0 {
		cfg.Output.TopCharts = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Universe.Index {
	case "nasdaq100", "sp500":
	case "custom":
		if len(c.Universe.Tickers) == 0 {
			return fmt.Errorf("universe.tickers is required for a custom universe")
		}
	default:
		return fmt.Errorf("universe.index must be nasdaq100, sp500 or custom, got %q", c.Universe.Index)
	}
	if c.Screen.PriorDays <= 0 || c.Screen.ConsolDays <= 0 {
		return fmt.Errorf("screen windows must be positive")
	}
	if c.Screen.Workers <= 0 {
		return fmt.Errorf("screen.workers must be positive")
	}
	if c.DataSource.Retries <= 0 {
		return fmt.Errorf("data_source.retries must be positive")
	}
	if c.DataSource.RequestsPerSecond <= 0 {
		return fmt.Errorf("data_source.requests_per_second must be positive")
	}
	return nil
}
