package config

import (
	"errors"
	"fmt"

	"github.com/developerxnoxs/xnoxs-feed/internal/model"
)

// Validate checks that all required fields are set and values are valid.
func (c *FeedConfig) Validate() error {
	if c.Connection.Endpoint == "" {
		return errors.New("connection.endpoint is required")
	}
	if c.Connection.ReconnectAttempts < 1 {
		return errors.New("connection.reconnect_attempts must be >= 1")
	}
	if c.Connection.ReconnectDelay <= 0 {
		return errors.New("connection.reconnect_delay must be positive")
	}
	if c.Connection.ReconnectDelayMax < c.Connection.ReconnectDelay {
		return fmt.Errorf("connection.reconnect_delay_max (%s) cannot be below reconnect_delay (%s)",
			c.Connection.ReconnectDelayMax, c.Connection.ReconnectDelay)
	}

	if (c.Auth.Username == "") != (c.Auth.Password == "") {
		return errors.New("auth.username and auth.password must be set together")
	}

	if c.Feed.RetryLimit < 1 {
		return errors.New("feed.retry_limit must be >= 1")
	}
	if c.Feed.RetryDelay <= 0 {
		return errors.New("feed.retry_delay must be positive")
	}
	if c.Feed.SeedBars < 1 {
		return errors.New("feed.seed_bars must be >= 1")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}

	for i, s := range c.Streams {
		if s.Symbol == "" {
			return fmt.Errorf("streams[%d].symbol is required", i)
		}
		if s.Exchange == "" {
			return fmt.Errorf("streams[%d].exchange is required", i)
		}
		if _, err := model.ParseTimeframe(s.Timeframe); err != nil {
			return fmt.Errorf("streams[%d]: %w", i, err)
		}
		if s.Contract < 0 {
			return fmt.Errorf("streams[%d].contract must be >= 0", i)
		}
	}

	return nil
}
