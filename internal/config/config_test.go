package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
connection:
  endpoint: wss://example.test/socket
  reconnect_attempts: 3
feed:
  retry_limit: 10
streams:
  - symbol: BTCUSDT
    exchange: BINANCE
    timeframe: 1m
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Connection.Endpoint != "wss://example.test/socket" {
		t.Errorf("Connection.Endpoint = %q, want %q", cfg.Connection.Endpoint, "wss://example.test/socket")
	}
	if cfg.Connection.ReconnectAttempts != 3 {
		t.Errorf("Connection.ReconnectAttempts = %d, want 3", cfg.Connection.ReconnectAttempts)
	}
	if cfg.Feed.RetryLimit != 10 {
		t.Errorf("Feed.RetryLimit = %d, want 10", cfg.Feed.RetryLimit)
	}
	if len(cfg.Streams) != 1 || cfg.Streams[0].Symbol != "BTCUSDT" {
		t.Errorf("Streams = %+v, want one BTCUSDT entry", cfg.Streams)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_TV_PASSWORD", "secret123")

	yaml := `
auth:
  username: alice
  password: ${TEST_TV_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Auth.Password != "secret123" {
		t.Errorf("Auth.Password = %q, want %q", cfg.Auth.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "{}\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Connection.Endpoint != DefaultEndpoint {
		t.Errorf("Connection.Endpoint = %q, want default %q", cfg.Connection.Endpoint, DefaultEndpoint)
	}
	if cfg.Connection.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("Connection.ReconnectDelay = %v, want %v", cfg.Connection.ReconnectDelay, DefaultReconnectDelay)
	}
	if cfg.Feed.RetryLimit != DefaultRetryLimit {
		t.Errorf("Feed.RetryLimit = %d, want %d", cfg.Feed.RetryLimit, DefaultRetryLimit)
	}
	if cfg.Feed.RetryDelay != 100*time.Millisecond {
		t.Errorf("Feed.RetryDelay = %v, want 100ms", cfg.Feed.RetryDelay)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FeedConfig)
		wantErr bool
	}{
		{"defaults are valid", func(c *FeedConfig) {}, false},
		{"missing endpoint", func(c *FeedConfig) { c.Connection.Endpoint = "" }, true},
		{"zero reconnect attempts", func(c *FeedConfig) { c.Connection.ReconnectAttempts = 0 }, true},
		{"max delay below base delay", func(c *FeedConfig) {
			c.Connection.ReconnectDelay = 10 * time.Second
			c.Connection.ReconnectDelayMax = time.Second
		}, true},
		{"username without password", func(c *FeedConfig) { c.Auth.Username = "alice" }, true},
		{"credentials together", func(c *FeedConfig) {
			c.Auth.Username = "alice"
			c.Auth.Password = "pw"
		}, false},
		{"zero retry limit", func(c *FeedConfig) { c.Feed.RetryLimit = 0 }, true},
		{"bad log level", func(c *FeedConfig) { c.Logging.Level = "verbose" }, true},
		{"valid stream", func(c *FeedConfig) {
			c.Streams = []StreamConfig{{Symbol: "BTCUSDT", Exchange: "BINANCE", Timeframe: "1h"}}
		}, false},
		{"stream missing exchange", func(c *FeedConfig) {
			c.Streams = []StreamConfig{{Symbol: "BTCUSDT", Timeframe: "1h"}}
		}, true},
		{"stream bad timeframe", func(c *FeedConfig) {
			c.Streams = []StreamConfig{{Symbol: "BTCUSDT", Exchange: "BINANCE", Timeframe: "7m"}}
		}, true},
		{"negative contract", func(c *FeedConfig) {
			c.Streams = []StreamConfig{{Symbol: "XAUUSD", Exchange: "EIGHTCAP", Timeframe: "1h", Contract: -1}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAndValidateRejectsBadConfig(t *testing.T) {
	yaml := `
feed:
  retry_limit: -1
`
	path := writeTempFile(t, yaml)

	if _, err := LoadAndValidate(path); err == nil {
		t.Fatal("expected validation error for negative retry_limit")
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
