// Package auth manages TradingView authentication and session persistence.
package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"sync"
	"time"
)

// AnonymousToken grants delayed, unauthenticated market data access.
const AnonymousToken = "unauthorized_user_token"

// Errors
var (
	ErrLoginFailed = errors.New("login rejected")
	ErrNoSession   = errors.New("no stored session")
)

// Config configures the auth manager.
type Config struct {
	SignInURL   string        // sign-in endpoint
	Origin      string        // Origin/Referer host sent with the login request
	SessionFile string        // where the session is persisted
	Timeout     time.Duration // HTTP request timeout
	SessionTTL  time.Duration // how long a fresh session is considered valid
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		SignInURL:   "https://www.tradingview.com/accounts/signin/",
		Origin:      "https://www.tradingview.com",
		SessionFile: ".tv_session.json",
		Timeout:     15 * time.Second,
		SessionTTL:  90 * 24 * time.Hour,
	}
}

// Session is one persisted login.
type Session struct {
	Token     string            `json:"token"`
	SessionID string            `json:"session_id"`
	Username  string            `json:"username"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Cookies   map[string]string `json:"cookies,omitempty"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NearExpiry reports whether the session expires within threshold.
func (s *Session) NearExpiry(now time.Time, threshold time.Duration) bool {
	return !now.Before(s.ExpiresAt.Add(-threshold))
}

// Manager authenticates against TradingView and persists the session so
// later runs can reuse it without logging in again.
type Manager struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	// now is swapped out in tests.
	now func() time.Time

	mu      sync.Mutex
	session *Session
}

// NewManager creates an auth manager and loads any stored session that
// has not expired.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
	if err := m.loadSession(); err != nil && !errors.Is(err, ErrNoSession) {
		logger.Warn("failed to load stored session", "error", err)
	}
	return m
}

// Token returns the current auth token, or AnonymousToken when no valid
// session exists.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && !m.session.Expired(m.now()) {
		return m.session.Token
	}
	return AnonymousToken
}

// IsAuthenticated reports whether a non-expired session is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && !m.session.Expired(m.now())
}

// SessionInfo returns a copy of the current session.
func (m *Manager) SessionInfo() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Authenticate logs in and returns the auth token. A stored non-expired
// session for the same username is reused without a network round trip.
func (m *Manager) Authenticate(username, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && !m.session.Expired(m.now()) && m.session.Username == username {
		m.logger.Info("reusing stored session", "username", username)
		return m.session.Token, nil
	}
	return m.loginLocked(username, password)
}

// Refresh forces a new login even when the stored session is still valid.
func (m *Manager) Refresh(username, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loginLocked(username, password)
}

// Logout clears the session in memory and on disk.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = nil
	if err := os.Remove(m.cfg.SessionFile); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("failed to remove session file", "error", err)
	}
	m.logger.Info("logged out")
}

type signInResponse struct {
	Error string `json:"error"`
	User  struct {
		AuthToken string `json:"auth_token"`
		Username  string `json:"username"`
	} `json:"user"`
}

func (m *Manager) loginLocked(username, password string) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for field, value := range map[string]string{
		"username": username,
		"password": password,
		"remember": "true",
	} {
		if err := form.WriteField(field, value); err != nil {
			return "", fmt.Errorf("build login form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("build login form: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, m.cfg.SignInURL, &body)
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Origin", m.cfg.Origin)
	req.Header.Set("Referer", m.cfg.Origin+"/")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Language", "en")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login request: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}

	var parsed signInResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrLoginFailed, parsed.Error)
	}

	cookies := make(map[string]string)
	sessionID := ""
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c.Value
		if c.Name == "sessionid" {
			sessionID = c.Value
		}
	}

	// The user payload carries the token; the session cookie is the
	// fallback for accounts that only get cookie auth.
	token := parsed.User.AuthToken
	if token == "" {
		token = sessionID
	}
	if token == "" {
		return "", fmt.Errorf("%w: no token in response", ErrLoginFailed)
	}

	loginName := parsed.User.Username
	if loginName == "" {
		loginName = username
	}

	now := m.now()
	m.session = &Session{
		Token:     token,
		SessionID: sessionID,
		Username:  loginName,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.SessionTTL),
		Cookies:   cookies,
	}
	if err := m.saveSessionLocked(); err != nil {
		m.logger.Warn("failed to persist session", "error", err)
	}

	m.logger.Info("login successful", "username", loginName)
	return token, nil
}

func (m *Manager) loadSession() error {
	data, err := os.ReadFile(m.cfg.SessionFile)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoSession
		}
		return fmt.Errorf("read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode session file: %w", err)
	}
	if s.Expired(m.now()) {
		m.logger.Info("stored session expired", "username", s.Username)
		return ErrNoSession
	}

	m.mu.Lock()
	m.session = &s
	m.mu.Unlock()

	m.logger.Info("loaded stored session", "username", s.Username)
	return nil
}

func (m *Manager) saveSessionLocked() error {
	data, err := json.MarshalIndent(m.session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(m.cfg.SessionFile, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
