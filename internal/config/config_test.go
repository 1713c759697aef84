package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.PollInterval)
	}
	if cfg.HasCredentials() {
		t.Error("HasCredentials() should be false with no credentials set")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
logLevel: debug
pollInterval: 5s
market:
  slug: btc-updown-aug30-15
  upTokenId: tok-up
  downTokenId: tok-down
strategy:
  enabled: true
  entryPrice: 96
  profitTargetPrice: 100
  stopLossPrice: 91
  tradeSize: 150
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.Market.Slug != "btc-updown-aug30-15" {
		t.Errorf("Market.Slug = %q", cfg.Market.Slug)
	}
	if !cfg.Strategy.Enabled || cfg.Strategy.TradeSize != 150 {
		t.Errorf("Strategy = %+v", cfg.Strategy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("UPDOWN_MARKET_SLUG", "eth-updown")
	t.Setenv("UPDOWN_CREDENTIALS_APIKEY", "key")
	t.Setenv("UPDOWN_CREDENTIALS_APISECRET", "secret")
	t.Setenv("UPDOWN_CREDENTIALS_PASSPHRASE", "phrase")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Market.Slug != "eth-updown" {
		t.Errorf("Market.Slug = %q, want eth-updown", cfg.Market.Slug)
	}
	if !cfg.HasCredentials() {
		t.Error("HasCredentials() should be true with all three credentials set")
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !errors.Is(cfg.Validate(), ErrMissingMarketSlug) {
		t.Error("expected ErrMissingMarketSlug with empty config")
	}

	cfg.Market.Slug = "btc-updown"
	if !errors.Is(cfg.Validate(), ErrMissingTokenIDs) {
		t.Error("expected ErrMissingTokenIDs with slug but no tokens")
	}

	cfg.Market.UpTokenID = "up"
	cfg.Market.DownTokenID = "down"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
