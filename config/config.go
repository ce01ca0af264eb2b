package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable for the exchange binaries. Values left zero in
// the yaml file fall back to defaults; a few operational knobs can be
// overridden from the environment.
type Config struct {
	Pair struct {
		Base  string `yaml:"base"`
		Quote string `yaml:"quote"`
	} `yaml:"pair"`

	Engine struct {
		RequestBuffer int `yaml:"request_buffer"`
		TradeBuffer   int `yaml:"trade_buffer"`
	} `yaml:"engine"`

	Funding struct {
		// Starting balances granted to the interactive user account.
		UserBase  string `yaml:"user_base"`
		UserQuote string `yaml:"user_quote"`
		// Starting balances granted to each bot account.
		BotBase  string `yaml:"bot_base"`
		BotQuote string `yaml:"bot_quote"`
	} `yaml:"funding"`

	Bots struct {
		OrderIntervalMS int `yaml:"order_interval_ms"`
		QuantityMax     int `yaml:"quantity_max"`
		PriceRange      int `yaml:"price_range"`
		LifetimeMS      int `yaml:"lifetime_ms"`
	} `yaml:"bots"`

	Server struct {
		ListenAddr string `yaml:"listen_addr"`
		CORSOrigin string `yaml:"cors_origin"`
		DepthLimit int    `yaml:"depth_limit"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// Load reads a yaml config file, fills defaults, and applies environment
// overrides. A missing path yields the defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Pair.Base == "" {
		c.Pair.Base = "OSMO"
	}
	if c.Pair.Quote == "" {
		c.Pair.Quote = "USD"
	}
	if c.Engine.RequestBuffer <= 0 {
		c.Engine.RequestBuffer = 64
	}
	if c.Engine.TradeBuffer <= 0 {
		c.Engine.TradeBuffer = 64
	}
	if c.Funding.UserBase == "" {
		c.Funding.UserBase = "100000"
	}
	if c.Funding.UserQuote == "" {
		c.Funding.UserQuote = "500000"
	}
	if c.Funding.BotBase == "" {
		c.Funding.BotBase = "10000"
	}
	if c.Funding.BotQuote == "" {
		c.Funding.BotQuote = "1000000"
	}
	if c.Bots.OrderIntervalMS <= 0 {
		c.Bots.OrderIntervalMS = 200
	}
	if c.Bots.QuantityMax <= 0 {
		c.Bots.QuantityMax = 5
	}
	if c.Bots.PriceRange <= 0 {
		c.Bots.PriceRange = 5
	}
	if c.Bots.LifetimeMS <= 0 {
		c.Bots.LifetimeMS = 2000
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.CORSOrigin == "" {
		c.Server.CORSOrigin = "*"
	}
	if c.Server.DepthLimit <= 0 {
		c.Server.DepthLimit = 20
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		c.Server.CORSOrigin = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// BotOrderInterval is the configured bot throttle as a duration.
func (c Config) BotOrderInterval() time.Duration {
	return time.Duration(c.Bots.OrderIntervalMS) * time.Millisecond
}

// BotOrderLifetime is how long bot orders rest before cancellation.
func (c Config) BotOrderLifetime() time.Duration {
	return time.Duration(c.Bots.LifetimeMS) * time.Millisecond
}
