// Package model defines shared data types for the live feed.
//
// Conventions:
//   - Bar timestamps: time.Time built from upstream epoch seconds
//   - OHLCV fields: float64, as delivered in the series payload
//   - Timeframes: TradingView interval strings ("1", "15", "1H", "1D", ...)
package model
