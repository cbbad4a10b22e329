package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T, url string) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SignInURL = url
	cfg.SessionFile = filepath.Join(t.TempDir(), "session.json")
	return NewManager(cfg, nil)
}

func TestAuthenticateStoresAndReusesSession(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "alice", r.FormValue("username"))
		assert.Equal(t, "true", r.FormValue("remember"))

		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "cookie-123"})
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"auth_token": "tok-abc", "username": "alice"},
		})
	}))
	defer srv.Close()

	m := testManager(t, srv.URL)
	token, err := m.Authenticate("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "tok-abc", m.Token())

	sess, ok := m.SessionInfo()
	require.True(t, ok)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, "cookie-123", sess.SessionID)

	// Same manager, same user: no second round trip.
	token, err = m.Authenticate("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
	assert.Equal(t, int32(1), hits.Load())

	// A fresh manager picks the session up from disk.
	cfg := DefaultConfig()
	cfg.SignInURL = srv.URL
	cfg.SessionFile = m.cfg.SessionFile
	m2 := NewManager(cfg, nil)
	token, err = m2.Authenticate("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
	assert.Equal(t, int32(1), hits.Load(), "stored session reused without login")
}

func TestRefreshForcesNewLogin(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{
				"auth_token": fmt.Sprintf("tok-%d", n),
				"username":   "alice",
			},
		})
	}))
	defer srv.Close()

	m := testManager(t, srv.URL)
	token, err := m.Authenticate("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	// The stored session is still valid; Refresh logs in anyway.
	token, err = m.Refresh("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "tok-2", m.Token())

	sess, ok := m.SessionInfo()
	require.True(t, ok)
	assert.Equal(t, "tok-2", sess.Token, "refreshed session persisted")
}

func TestAuthenticateRejectedLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "Invalid credentials"})
	}))
	defer srv.Close()

	m := testManager(t, srv.URL)
	_, err := m.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, AnonymousToken, m.Token())
}

func TestTokenFallsBackToSessionCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "cookie-only"})
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"username": "bob"},
		})
	}))
	defer srv.Close()

	m := testManager(t, srv.URL)
	token, err := m.Authenticate("bob", "pw")
	require.NoError(t, err)
	assert.Equal(t, "cookie-only", token)
}

func TestAnonymousWithoutSession(t *testing.T) {
	m := testManager(t, "http://127.0.0.1:0")
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, AnonymousToken, m.Token())
}

func TestExpiredStoredSessionIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	stale := Session{
		Token:     "old-token",
		Username:  "alice",
		CreatedAt: time.Now().Add(-91 * 24 * time.Hour),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
	}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg := DefaultConfig()
	cfg.SessionFile = path
	m := NewManager(cfg, nil)

	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, AnonymousToken, m.Token())
}

func TestCorruptSessionFileTolerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	cfg := DefaultConfig()
	cfg.SessionFile = path
	m := NewManager(cfg, nil)
	assert.False(t, m.IsAuthenticated())
}

func TestLogoutClearsSessionAndFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"auth_token": "tok", "username": "alice"},
		})
	}))
	defer srv.Close()

	m := testManager(t, srv.URL)
	_, err := m.Authenticate("alice", "pw")
	require.NoError(t, err)

	m.Logout()
	assert.False(t, m.IsAuthenticated())
	_, statErr := os.Stat(m.cfg.SessionFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSessionExpiryWindows(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now.Add(20 * time.Minute)}

	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(20*time.Minute)))
	assert.True(t, s.NearExpiry(now, 30*time.Minute))
	assert.False(t, s.NearExpiry(now, 10*time.Minute))
}
