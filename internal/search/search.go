// Package search queries the TradingView symbol search endpoint.
package search

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is one symbol search hit. The endpoint returns more fields than
// these; unknown ones are ignored.
type Result struct {
	Symbol       string `json:"symbol"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	Exchange     string `json:"exchange"`
	CurrencyCode string `json:"currency_code"`
	ProviderID   string `json:"provider_id"`
}

// Config configures the search client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://symbol-search.tradingview.com/symbol_search/",
		Timeout: 10 * time.Second,
	}
}

// Client searches for tradable symbols.
type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a search client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Search looks up symbols matching query, optionally filtered by exchange.
// A blocked (403) or failed search returns an empty result set, not an
// error, so callers degrade gracefully.
func (c *Client) Search(query, exchange string) []Result {
	q := url.Values{}
	q.Set("text", query)
	q.Set("hl", "1")
	q.Set("exchange", exchange)
	q.Set("lang", "en")
	q.Set("type", "")
	q.Set("domain", "production")

	req, err := http.NewRequest(http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		c.logger.Error("symbol search failed", "query", query, "error", err)
		return nil
	}
	req.Header.Set("Referer", "https://www.tradingview.com")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("symbol search failed", "query", query, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		c.logger.Warn("symbol search blocked, try again later", "query", query)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("symbol search http error",
			"query", query,
			"status", resp.StatusCode,
		)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("symbol search failed", "query", query, "error", err)
		return nil
	}

	// Hit highlighting wraps matches in <em> tags; strip them so the
	// payload is plain JSON values.
	text := strings.ReplaceAll(string(body), "</em>", "")
	text = strings.ReplaceAll(text, "<em>", "")

	var results []Result
	if err := json.Unmarshal([]byte(text), &results); err != nil {
		c.logger.Error("symbol search failed",
			"query", query,
			"error", fmt.Errorf("decode response: %w", err),
		)
		return nil
	}
	return results
}
