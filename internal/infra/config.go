package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
)

// Trading modes.
const (
	ModeSimulation = "simulation"
	ModeLive       = "live"
)

// Config holds every application setting. Secrets may be supplied in the
// file but environment variables take precedence.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode           string             `yaml:"mode"`
		Symbols        []string           `yaml:"symbols"`
		ReserveAsset   string             `yaml:"reserve_asset"`
		Schedule       string             `yaml:"schedule"`
		InitialBalance float64            `yaml:"initial_balance"`
		Limits         domain.TradeLimits `yaml:"limits"`
	} `yaml:"trading"`

	API struct {
		Binance struct {
			APIKey    string `yaml:"api_key"`
			SecretKey string `yaml:"secret_key"`
		} `yaml:"binance"`
	} `yaml:"api"`

	Dashboard struct {
		Addr             string `yaml:"addr"`
		NotifyURL        string `yaml:"notify_url"`
		NotifyTimeoutSec int    `yaml:"notify_timeout_sec"`
	} `yaml:"dashboard"`

	State struct {
		HistorySize int    `yaml:"history_size"`
		File        string `yaml:"file"`
	} `yaml:"state"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides and defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	// Live credentials may also sit in a separate secrets file kept out of
	// version control. Environment variables and file values win; a missing
	// secrets file surfaces as the usual validation error below.
	if cfg.Trading.Mode == ModeLive && (cfg.API.Binance.APIKey == "" || cfg.API.Binance.SecretKey == "") {
		if secrets, err := LoadSecretConfig(resolveSecretsPath()); err == nil {
			cfg.ApplySecrets(secrets)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Trading.Mode == "" {
		c.Trading.Mode = ModeSimulation
	}
	c.Trading.Mode = strings.ToLower(c.Trading.Mode)
	if c.Trading.ReserveAsset == "" {
		c.Trading.ReserveAsset = "USDT"
	}
	if c.Trading.Limits.MinTrade == 0 {
		c.Trading.Limits.MinTrade = 10
	}
	if c.Trading.Limits.MaxSingleTrade == 0 {
		c.Trading.Limits.MaxSingleTrade = 1000
	}
	if c.Trading.Limits.SafetyMargin == 0 {
		c.Trading.Limits.SafetyMargin = 0.05
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = ":8000"
	}
	if c.Dashboard.NotifyTimeoutSec == 0 {
		c.Dashboard.NotifyTimeoutSec = 5
	}
	if c.State.HistorySize == 0 {
		c.State.HistorySize = 1000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	switch c.Trading.Mode {
	case ModeSimulation, ModeLive:
	default:
		return fmt.Errorf("unknown trading mode: %q", c.Trading.Mode)
	}

	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("at least one trading symbol is required")
	}
	for _, symbol := range c.Trading.Symbols {
		if !strings.HasSuffix(symbol, c.Trading.ReserveAsset) {
			return fmt.Errorf("symbol %s is not quoted in reserve asset %s", symbol, c.Trading.ReserveAsset)
		}
	}

	if c.Trading.Mode == ModeLive {
		if c.API.Binance.APIKey == "" || c.API.Binance.SecretKey == "" {
			return fmt.Errorf("live mode requires Binance API credentials")
		}
	}

	limits := c.Trading.Limits
	if limits.MinTrade < 0 || limits.MaxSingleTrade <= 0 {
		return fmt.Errorf("trade limits must be positive")
	}
	if limits.MinTrade > limits.MaxSingleTrade {
		return fmt.Errorf("min trade %.2f exceeds max single trade %.2f", limits.MinTrade, limits.MaxSingleTrade)
	}
	if limits.SafetyMargin < 0 || limits.SafetyMargin >= 1 {
		return fmt.Errorf("safety margin must be in [0, 1): %v", limits.SafetyMargin)
	}

	if c.State.HistorySize <= 0 {
		return fmt.Errorf("history size must be positive")
	}
	return nil
}

// overrideWithEnv replaces config values with environment variables when
// present. Environment takes precedence over the file for secrets.
func overrideWithEnv(cfg *Config) {
	if cfg.API.Binance.SecretKey != "" {
		fmt.Println("⚠️  SECURITY WARNING: API secrets found in config file.")
		fmt.Println("   Recommendation: Use environment variables instead:")
		fmt.Println("   - KRONOS_BINANCE_KEY, KRONOS_BINANCE_SECRET")
	}

	if key := os.Getenv("KRONOS_BINANCE_KEY"); key != "" {
		cfg.API.Binance.APIKey = key
	}
	if secret := os.Getenv("KRONOS_BINANCE_SECRET"); secret != "" {
		cfg.API.Binance.SecretKey = secret
	}
}
