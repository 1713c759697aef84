// Package config provides configuration handling for the up/down trading bot.
// Values come from an optional YAML file merged with UPDOWN_* environment
// variables; the environment wins.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingMarketSlug is returned when no market is configured.
	ErrMissingMarketSlug = errors.New("config: market slug not set")

	// ErrMissingTokenIDs is returned when a market slug is configured
	// without both outcome token IDs.
	ErrMissingTokenIDs = errors.New("config: market requires both up and down token IDs")
)

// Credentials holds the CLOB API credentials. All three fields must be set
// for live order submission; otherwise the bot runs in simulation mode.
type Credentials struct {
	APIKey     string `mapstructure:"apiKey"`
	APISecret  string `mapstructure:"apiSecret"`
	Passphrase string `mapstructure:"passphrase"`
}

// Market identifies the binary market the bot trades.
type Market struct {
	Slug        string `mapstructure:"slug"`
	UpTokenID   string `mapstructure:"upTokenId"`
	DownTokenID string `mapstructure:"downTokenId"`
}

// Strategy holds the initial strategy values applied when no persisted
// configuration exists yet.
type Strategy struct {
	Enabled           bool    `mapstructure:"enabled"`
	EntryPrice        float64 `mapstructure:"entryPrice"`
	EntryBandWidth    float64 `mapstructure:"entryBandWidth"`
	ProfitTargetPrice float64 `mapstructure:"profitTargetPrice"`
	StopLossPrice     float64 `mapstructure:"stopLossPrice"`
	TradeSize         float64 `mapstructure:"tradeSize"`
}

// Config holds the application configuration.
type Config struct {
	LogLevel     string        `mapstructure:"logLevel"`
	DataDir      string        `mapstructure:"dataDir"`
	HTTPPort     int           `mapstructure:"httpPort"`
	PollInterval time.Duration `mapstructure:"pollInterval"`

	// ClobURL is the CLOB REST base URL. Empty uses the production URL.
	ClobURL string `mapstructure:"clobUrl"`

	// SpotFeedURL is the websocket trade stream for the underlying asset.
	// Empty disables the price-difference filter's data source.
	SpotFeedURL string `mapstructure:"spotFeedUrl"`

	// FeeRateBps is passed through on every order.
	FeeRateBps int `mapstructure:"feeRateBps"`

	// SlackWebhookURL enables trade alerts when set.
	SlackWebhookURL string `mapstructure:"slackWebhookUrl"`

	Credentials Credentials `mapstructure:"credentials"`
	Market      Market      `mapstructure:"market"`
	Strategy    Strategy    `mapstructure:"strategy"`
}

// Load reads configuration from the given file (optional, pass "" to skip)
// and the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("UPDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("dataDir", "./data")
	v.SetDefault("httpPort", 8080)
	v.SetDefault("pollInterval", 2*time.Second)
	v.SetDefault("feeRateBps", 0)
	v.SetDefault("slackWebhookUrl", "")
	v.SetDefault("strategy.entryBandWidth", 1.0)

	// Viper only binds env vars it has seen a key for; defaults double
	// as key registrations for the nested sections.
	v.SetDefault("credentials.apiKey", "")
	v.SetDefault("credentials.apiSecret", "")
	v.SetDefault("credentials.passphrase", "")
	v.SetDefault("market.slug", "")
	v.SetDefault("market.upTokenId", "")
	v.SetDefault("market.downTokenId", "")
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Market.Slug == "" {
		return ErrMissingMarketSlug
	}
	if c.Market.UpTokenID == "" || c.Market.DownTokenID == "" {
		return ErrMissingTokenIDs
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: invalid http port %d", c.HTTPPort)
	}
	return nil
}

// HasCredentials returns true when live order submission is possible.
func (c *Config) HasCredentials() bool {
	return c.Credentials.APIKey != "" &&
		c.Credentials.APISecret != "" &&
		c.Credentials.Passphrase != ""
}
