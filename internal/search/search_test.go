package search

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(url string) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = url
	return NewClient(cfg, nil)
}

func TestSearchParsesHighlightedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("text"))
		assert.Equal(t, "BINANCE", r.URL.Query().Get("exchange"))
		w.Write([]byte(`[
			{"symbol":"<em>BTCUSDT</em>","description":"Bitcoin / TetherUS","type":"spot","exchange":"BINANCE","currency_code":"USDT"},
			{"symbol":"<em>BTCUSDT</em>.P","description":"Bitcoin Perp","type":"swap","exchange":"BINANCE","currency_code":"USDT"}
		]`))
	}))
	defer srv.Close()

	results := testClient(srv.URL).Search("BTCUSDT", "BINANCE")
	require.Len(t, results, 2)
	assert.Equal(t, "BTCUSDT", results[0].Symbol, "highlight tags stripped")
	assert.Equal(t, "Bitcoin / TetherUS", results[0].Description)
	assert.Equal(t, "BTCUSDT.P", results[1].Symbol)
}

func TestSearchBlockedReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	assert.Empty(t, testClient(srv.URL).Search("AAPL", ""))
}

func TestSearchHTTPErrorReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Empty(t, testClient(srv.URL).Search("AAPL", ""))
}

func TestSearchBadJSONReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	assert.Empty(t, testClient(srv.URL).Search("AAPL", ""))
}
