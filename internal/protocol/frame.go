package protocol

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
)

// SeriesCompleted is the inbound marker that ends a series fetch.
const SeriesCompleted = "series_completed"

const sessionIDLength = 12

// Frame prepends the length-prefixed header: ~m~<byte-length>~m~<payload>.
func Frame(payload []byte) []byte {
	header := fmt.Sprintf("~m~%d~m~", len(payload))
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}

// command is the outbound message envelope.
type command struct {
	M string `json:"m"`
	P []any  `json:"p"`
}

// EncodeCommand serializes {"m":name,"p":params} without whitespace and frames it.
func EncodeCommand(name string, params ...any) ([]byte, error) {
	if params == nil {
		params = []any{}
	}
	payload, err := json.Marshal(command{M: name, P: params})
	if err != nil {
		return nil, fmt.Errorf("encode command %s: %w", name, err)
	}
	return Frame(payload), nil
}

// IsComplete reports whether a raw inbound chunk carries the series-completed marker.
func IsComplete(raw string) bool {
	return strings.Contains(raw, SeriesCompleted)
}

func randomSessionID(prefix string) string {
	const chars = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, sessionIDLength)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return prefix + string(b)
}

// NewQuoteSessionID returns a fresh quote session identifier (qs_ prefix).
func NewQuoteSessionID() string {
	return randomSessionID("qs_")
}

// NewChartSessionID returns a fresh chart session identifier (cs_ prefix).
func NewChartSessionID() string {
	return randomSessionID("cs_")
}

// FormatSymbol builds the exchange-qualified symbol string.
// A symbol already containing ":" is passed through unchanged.
// contract > 0 selects a futures front-month (EXCHANGE:SYMBOL<k>!).
func FormatSymbol(symbol, exchange string, contract int) string {
	if strings.Contains(symbol, ":") {
		return symbol
	}
	if contract > 0 {
		return fmt.Sprintf("%s:%s%d!", exchange, symbol, contract)
	}
	return exchange + ":" + symbol
}
