package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultEndpoint          = "wss://data.tradingview.com/socket.io/websocket"
	DefaultOrigin            = "https://data.tradingview.com"
	DefaultDialTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultPingTimeout       = 30 * time.Second
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = 1 * time.Second
	DefaultReconnectDelayMax = 30 * time.Second
	DefaultSignInURL         = "https://www.tradingview.com/accounts/signin/"
	DefaultSessionFile       = ".tv_session.json"
	DefaultFetchTimeout      = 60 * time.Second
	DefaultReceiveTimeout    = 5 * time.Second
	DefaultRetryLimit        = 50
	DefaultRetryDelay        = 100 * time.Millisecond
	DefaultSeedBars          = 2
	DefaultSearchURL         = "https://symbol-search.tradingview.com/symbol_search/"
	DefaultSearchTimeout     = 10 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogMaxSizeMB      = 100
	DefaultLogMaxBackups     = 5
	DefaultLogMaxAgeDays     = 30
)

func (c *FeedConfig) applyDefaults() {
	// Connection defaults
	if c.Connection.Endpoint == "" {
		c.Connection.Endpoint = DefaultEndpoint
	}
	if c.Connection.Origin == "" {
		c.Connection.Origin = DefaultOrigin
	}
	if c.Connection.DialTimeout == 0 {
		c.Connection.DialTimeout = DefaultDialTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.HeartbeatInterval == 0 {
		c.Connection.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.ReconnectAttempts == 0 {
		c.Connection.ReconnectAttempts = DefaultReconnectAttempts
	}
	if c.Connection.ReconnectDelay == 0 {
		c.Connection.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Connection.ReconnectDelayMax == 0 {
		c.Connection.ReconnectDelayMax = DefaultReconnectDelayMax
	}

	// Auth defaults
	if c.Auth.SignInURL == "" {
		c.Auth.SignInURL = DefaultSignInURL
	}
	if c.Auth.SessionFile == "" {
		c.Auth.SessionFile = DefaultSessionFile
	}

	// Fetch defaults
	if c.Fetch.FetchTimeout == 0 {
		c.Fetch.FetchTimeout = DefaultFetchTimeout
	}
	if c.Fetch.ReceiveTimeout == 0 {
		c.Fetch.ReceiveTimeout = DefaultReceiveTimeout
	}

	// Feed defaults
	if c.Feed.RetryLimit == 0 {
		c.Feed.RetryLimit = DefaultRetryLimit
	}
	if c.Feed.RetryDelay == 0 {
		c.Feed.RetryDelay = DefaultRetryDelay
	}
	if c.Feed.SeedBars == 0 {
		c.Feed.SeedBars = DefaultSeedBars
	}

	// Search defaults
	if c.Search.BaseURL == "" {
		c.Search.BaseURL = DefaultSearchURL
	}
	if c.Search.Timeout == 0 {
		c.Search.Timeout = DefaultSearchTimeout
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}
}
