package config

import (
	"fmt"
	"math"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Data struct {
		MinuteCSV string `yaml:"minute_csv"`
		DailyCSV  string `yaml:"daily_csv"`
		Timezone  string `yaml:"timezone"`
	} `yaml:"data"`
	Strategy struct {
		OpeningRangeBars int     `yaml:"opening_range_bars"`
		ATRLookback      int     `yaml:"atr_lookback"`
		TargetR          float64 `yaml:"target_r"` // <= 0 means no profit target
		// Pointers so an explicit 0 (e.g. commission-free runs)
		// is distinguishable from an absent key.
		ATRFraction        *float64 `yaml:"atr_fraction"`
		CommissionPerShare *float64 `yaml:"commission_per_share"`
	} `yaml:"strategy"`
	Account struct {
		Equity       float64 `yaml:"equity"`
		RiskFraction float64 `yaml:"risk_fraction"`
		MaxLeverage  float64 `yaml:"max_leverage"`
		MinShares    int     `yaml:"min_shares"`
	} `yaml:"account"`
	Output struct {
		TradesPath string `yaml:"trades_path"`
		Format     string `yaml:"format"` // csv, json or parquet
	} `yaml:"output"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	DataSource struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"data_source"`
	Workers int `yaml:"workers"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults still apply.
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
	if v := os.Getenv("ORBSIM_MINUTE_CSV"); v != "" {
		cfg.Data.MinuteCSV = v
	}
	if v := os.Getenv("ORBSIM_DAILY_CSV"); v != "" {
		cfg.Data.DailyCSV = v
	}
	if v := os.Getenv("ORBSIM_TRADES_PATH"); v != "" {
		cfg.Output.TradesPath = v
	}
	if v := os.Getenv("ORBSIM_SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("ORBSIM_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("ORBSIM_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("ORBSIM_EQUITY"); v != "" {
		var eq float64
		if _, err := fmt.Sscanf(v, "%f", &eq); err == nil {
			cfg.Account.Equity = eq
		}
	}

	// Defaults
	if cfg.Data.Timezone == "" {
		cfg.Data.Timezone = "America/New_York"
	}
	if cfg.Strategy.OpeningRangeBars == 0 {
		cfg.Strategy.OpeningRangeBars = 5
	}
	if cfg.Strategy.ATRLookback == 0 {
		cfg.Strategy.ATRLookback = 14
	}
	if cfg.Strategy.ATRFraction == nil {
		cfg.Strategy.ATRFraction = floatPtr(0.1)
	}
	if cfg.Strategy.CommissionPerShare == nil {
		cfg.Strategy.CommissionPerShare = floatPtr(0.005)
	}
	if cfg.Account.Equity == 0 {
		cfg.Account.Equity = 25000
	}
	if cfg.Account.RiskFraction == 0 {
		cfg.Account.RiskFraction = 0.01
	}
	if cfg.Account.MaxLeverage == 0 {
		cfg.Account.MaxLeverage = 4
	}
	if cfg.Account.MinShares == 0 {
		cfg.Account.MinShares = 1
	}
	if cfg.Output.TradesPath == "" {
		cfg.Output.TradesPath = "orb_trades.csv"
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "csv"
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	return cfg, nil
}

func floatPtr(v float64) *float64 { return &v }

// TargetR returns the reward multiple as used by the simulator:
// +Inf (no target) when unset or non-positive.
func (c *Config) TargetR() float64 {
	if c.Strategy.TargetR <= 0 {
		return math.Inf(1)
	}
	return c.Strategy.TargetR
}

// ATRFraction returns the stop-distance fraction; Load guarantees the
// pointer is set.
func (c *Config) ATRFraction() float64 { return *c.Strategy.ATRFraction }

// CommissionPerShare returns the per-share commission; Load guarantees
// the pointer is set.
func (c *Config) CommissionPerShare() float64 { return *c.Strategy.CommissionPerShare }

// Validate checks that all required fields are set and sane.
func (c *Config) Validate() error {
	if c.Data.MinuteCSV == "" {
		return fmt.Errorf("data.minute_csv is required")
	}
	if c.Data.DailyCSV == "" {
		return fmt.Errorf("data.daily_csv is required")
	}
	if c.Strategy.OpeningRangeBars < 1 {
		return fmt.Errorf("strategy.opening_range_bars must be positive")
	}
	if c.Strategy.ATRLookback < 1 {
		return fmt.Errorf("strategy.atr_lookback must be positive")
	}
	if c.Strategy.ATRFraction == nil || *c.Strategy.ATRFraction < 0 {
		return fmt.Errorf("strategy.atr_fraction must be non-negative")
	}
	if c.Strategy.CommissionPerShare == nil || *c.Strategy.CommissionPerShare < 0 {
		return fmt.Errorf("strategy.commission_per_share must be non-negative")
	}
	if c.Account.Equity <= 0 {
		return fmt.Errorf("account.equity must be positive")
	}
	if c.Account.RiskFraction <= 0 || c.Account.RiskFraction >= 1 {
		return fmt.Errorf("account.risk_fraction must be in (0, 1)")
	}
	if c.Account.MaxLeverage <= 0 {
		return fmt.Errorf("account.max_leverage must be positive")
	}
	switch c.Output.Format {
	case "csv", "json", "parquet":
	default:
		return fmt.Errorf("output.format must be csv, json or parquet")
	}
	return nil
}
