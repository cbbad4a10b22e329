package protocol

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	framed := Frame([]byte(`{"m":"ping","p":[]}`))
	assert.Equal(t, `~m~19~m~{"m":"ping","p":[]}`, string(framed))
}

func TestFrameEmptyPayload(t *testing.T) {
	assert.Equal(t, "~m~0~m~", string(Frame(nil)))
}

func TestEncodeCommand(t *testing.T) {
	const payload = `{"m":"set_auth_token","p":["token123"]}`
	msg, err := EncodeCommand("set_auth_token", "token123")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("~m~%d~m~%s", len(payload), payload), string(msg))
}

func TestEncodeCommandNoWhitespace(t *testing.T) {
	msg, err := EncodeCommand("create_series", "cs_abc", "s1", "s1", "symbol_1", "1D", 2)
	require.NoError(t, err)
	payload := string(msg[strings.LastIndex(string(msg), "~m~")+3:])
	assert.NotContains(t, payload, " ")
	assert.Equal(t, `{"m":"create_series","p":["cs_abc","s1","s1","symbol_1","1D",2]}`, payload)
}

func TestEncodeCommandEmptyParams(t *testing.T) {
	msg, err := EncodeCommand("quote_create_session")
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"p":[]`)
}

func TestSessionIDs(t *testing.T) {
	qs := NewQuoteSessionID()
	cs := NewChartSessionID()

	assert.Len(t, qs, len("qs_")+sessionIDLength)
	assert.Len(t, cs, len("cs_")+sessionIDLength)
	assert.True(t, strings.HasPrefix(qs, "qs_"))
	assert.True(t, strings.HasPrefix(cs, "cs_"))
	assert.NotEqual(t, NewQuoteSessionID(), NewQuoteSessionID())
}

func TestFormatSymbol(t *testing.T) {
	tests := []struct {
		symbol   string
		exchange string
		contract int
		want     string
	}{
		{"BTCUSD", "BINANCE", 0, "BINANCE:BTCUSD"},
		{"CRUDEOIL", "MCX", 1, "MCX:CRUDEOIL1!"},
		{"NIFTY", "NSE", 2, "NSE:NIFTY2!"},
		{"NASDAQ:AAPL", "IGNORED", 0, "NASDAQ:AAPL"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSymbol(tt.symbol, tt.exchange, tt.contract))
	}
}
