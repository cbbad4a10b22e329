package model

import "time"

// Bar is one OHLCV observation for a symbol at a given timestamp.
type Bar struct {
	Symbol string    // Formatted symbol label (e.g., "BINANCE:BTCUSD")
	Time   time.Time // Bar open time (exchange epoch seconds)
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64 // 0 when the upstream series carries no volume
}
