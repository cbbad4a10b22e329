package config

import "time"

// FeedConfig is the root configuration for a live feed instance.
type FeedConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Auth       AuthConfig       `yaml:"auth"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Feed       RefreshConfig    `yaml:"feed"`
	Search     SearchConfig     `yaml:"search"`
	Logging    LoggingConfig    `yaml:"logging"`
	Streams    []StreamConfig   `yaml:"streams"`
}

// ConnectionConfig holds WebSocket connection manager settings.
type ConnectionConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	Origin            string        `yaml:"origin"`
	DialTimeout       time.Duration `yaml:"dial_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	PingTimeout       time.Duration `yaml:"ping_timeout"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	ReconnectDelayMax time.Duration `yaml:"reconnect_delay_max"`
}

// AuthConfig holds TradingView login settings. Credentials are usually
// provided via ${TV_USERNAME}/${TV_PASSWORD} expansion; both empty means
// anonymous access.
type AuthConfig struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	SignInURL   string `yaml:"sign_in_url"`
	SessionFile string `yaml:"session_file"`
}

// FetchConfig holds one-shot fetch settings.
type FetchConfig struct {
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`
}

// RefreshConfig holds live refresh loop settings.
type RefreshConfig struct {
	RetryLimit int           `yaml:"retry_limit"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	SeedBars   int           `yaml:"seed_bars"`
}

// SearchConfig holds symbol search settings.
type SearchConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	File       string `yaml:"file"`        // empty disables the rotating file sink
	MaxSizeMB  int    `yaml:"max_size_mb"` // rotate after this many megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// StreamConfig declares one stream subscribed at startup.
type StreamConfig struct {
	Symbol          string `yaml:"symbol"`
	Exchange        string `yaml:"exchange"`
	Timeframe       string `yaml:"timeframe"`
	Contract        int    `yaml:"contract"`
	ExtendedSession bool   `yaml:"extended_session"`
}
