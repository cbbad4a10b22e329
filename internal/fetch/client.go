package fetch

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/developerxnoxs/xnoxs-feed/internal/model"
	"github.com/developerxnoxs/xnoxs-feed/internal/protocol"
)

// Errors
var (
	ErrSendFailed = errors.New("send failed")
	ErrTimeout    = errors.New("fetch timed out before series completed")
)

// AnonymousToken is used when no authenticated token was provided.
const AnonymousToken = "unauthorized_user_token"

// quoteFields is the field set requested for the quote session.
var quoteFields = []any{
	"ch", "chp", "current_session", "description", "local_description",
	"language", "exchange", "fractional", "is_tradable", "lp", "lp_time",
	"minmov", "minmove2", "original_name", "pricescale", "pro_name",
	"short_name", "type", "update_mode", "volume", "currency_code",
	"rchp", "rtc",
}

// Transport is the connection surface a fetch drives.
// Satisfied by *connection.Manager.
type Transport interface {
	Send(data []byte) bool
	Receive(timeout time.Duration) ([]byte, bool)
}

// Options tune a single fetch.
type Options struct {
	Contract        int  // futures front-month (0 = spot/cash)
	ExtendedSession bool // include extended trading hours
}

// Config configures a fetch client.
type Config struct {
	Token          string        // auth token (AnonymousToken when empty)
	FetchTimeout   time.Duration // overall budget for one fetch
	ReceiveTimeout time.Duration // per-frame read budget
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Token:          AnonymousToken,
		FetchTimeout:   60 * time.Second,
		ReceiveTimeout: 5 * time.Second,
	}
}

// Client performs one-shot bar fetches over a shared transport.
type Client struct {
	cfg    Config
	conn   Transport
	logger *slog.Logger

	// mu serializes whole request/response exchanges on the shared socket.
	mu sync.Mutex

	tokenMu sync.Mutex
	token   string
}

// NewClient creates a fetch client over the given transport.
func NewClient(cfg Config, conn Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	token := cfg.Token
	if token == "" {
		token = AnonymousToken
	}
	return &Client{
		cfg:    cfg,
		conn:   conn,
		logger: logger,
		token:  token,
	}
}

// SetToken swaps the auth token used for subsequent fetches.
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if token == "" {
		token = AnonymousToken
	}
	c.token = token
}

// GetBars fetches the latest n bars for (symbol, exchange, tf).
func (c *Client) GetBars(symbol, exchange string, tf model.Timeframe, n int) ([]model.Bar, error) {
	return c.GetBarsWithOptions(symbol, exchange, tf, n, Options{})
}

// GetBarsWithOptions fetches bars with futures-contract and session options.
func (c *Client) GetBarsWithOptions(symbol, exchange string, tf model.Timeframe, n int, opts Options) ([]model.Bar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	label := protocol.FormatSymbol(symbol, exchange, opts.Contract)

	if err := c.openSeries(label, tf, n, opts); err != nil {
		return nil, err
	}

	raw, err := c.receiveSeries()
	if err != nil {
		return nil, err
	}

	bars, volumeAbsent, err := protocol.ParseBars(raw, label)
	if err != nil {
		return nil, fmt.Errorf("parse series for %s: %w", label, err)
	}
	if volumeAbsent {
		c.logger.Debug("volume data not available", "symbol", label)
	}

	c.logger.Debug("fetched bars", "symbol", label, "timeframe", tf, "count", len(bars))
	return bars, nil
}

// openSeries sends the command sequence that establishes one series stream.
func (c *Client) openSeries(label string, tf model.Timeframe, n int, opts Options) error {
	c.tokenMu.Lock()
	token := c.token
	c.tokenMu.Unlock()

	quoteSession := protocol.NewQuoteSessionID()
	chartSession := protocol.NewChartSessionID()

	sessionType := "regular"
	if opts.ExtendedSession {
		sessionType = "extended"
	}
	resolvePayload := fmt.Sprintf(
		`={"symbol":"%s","adjustment":"splits","session":"%s"}`,
		label, sessionType,
	)

	commands := []struct {
		name   string
		params []any
	}{
		{"set_auth_token", []any{token}},
		{"chart_create_session", []any{chartSession, ""}},
		{"quote_create_session", []any{quoteSession}},
		{"quote_set_fields", append([]any{quoteSession}, quoteFields...)},
		{"quote_add_symbols", []any{quoteSession, label, map[string]any{"flags": []string{"force_permission"}}}},
		{"quote_fast_symbols", []any{quoteSession, label}},
		{"resolve_symbol", []any{chartSession, "symbol_1", resolvePayload}},
		{"create_series", []any{chartSession, "s1", "s1", "symbol_1", tf.String(), n}},
		{"switch_timezone", []any{chartSession, "exchange"}},
	}

	for _, cmd := range commands {
		msg, err := protocol.EncodeCommand(cmd.name, cmd.params...)
		if err != nil {
			return err
		}
		if !c.conn.Send(msg) {
			return fmt.Errorf("%w: %s", ErrSendFailed, cmd.name)
		}
	}
	return nil
}

// receiveSeries reads frames until the series-completed marker arrives.
func (c *Client) receiveSeries() (string, error) {
	deadline := time.Now().Add(c.cfg.FetchTimeout)
	var raw strings.Builder

	for {
		if time.Now().After(deadline) {
			return "", ErrTimeout
		}

		data, ok := c.conn.Receive(c.cfg.ReceiveTimeout)
		if !ok {
			return "", fmt.Errorf("%w: receive failed", ErrTimeout)
		}

		chunk := string(data)
		raw.WriteString(chunk)
		raw.WriteByte('\n')

		if protocol.IsComplete(chunk) {
			return raw.String(), nil
		}
	}
}
