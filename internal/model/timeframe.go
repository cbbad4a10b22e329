package model

import (
	"fmt"
	"time"
)

// Timeframe is a chart interval in TradingView wire notation.
type Timeframe string

// Supported timeframes.
const (
	Minute1  Timeframe = "1"
	Minute3  Timeframe = "3"
	Minute5  Timeframe = "5"
	Minute15 Timeframe = "15"
	Minute30 Timeframe = "30"
	Minute45 Timeframe = "45"
	Hour1    Timeframe = "1H"
	Hour2    Timeframe = "2H"
	Hour3    Timeframe = "3H"
	Hour4    Timeframe = "4H"
	Daily    Timeframe = "1D"
	Weekly   Timeframe = "1W"
	Monthly  Timeframe = "1M"
)

// durations maps sub-monthly timeframes to fixed durations.
// Monthly is calendar-based and handled separately in NextAfter.
var durations = map[Timeframe]time.Duration{
	Minute1:  time.Minute,
	Minute3:  3 * time.Minute,
	Minute5:  5 * time.Minute,
	Minute15: 15 * time.Minute,
	Minute30: 30 * time.Minute,
	Minute45: 45 * time.Minute,
	Hour1:    time.Hour,
	Hour2:    2 * time.Hour,
	Hour3:    3 * time.Hour,
	Hour4:    4 * time.Hour,
	Daily:    24 * time.Hour,
	Weekly:   7 * 24 * time.Hour,
}

// aliases maps user-facing spellings to canonical wire values.
var aliases = map[string]Timeframe{
	"1": Minute1, "1m": Minute1,
	"3": Minute3, "3m": Minute3,
	"5": Minute5, "5m": Minute5,
	"15": Minute15, "15m": Minute15,
	"30": Minute30, "30m": Minute30,
	"45": Minute45, "45m": Minute45,
	"1h": Hour1, "1H": Hour1,
	"2h": Hour2, "2H": Hour2,
	"3h": Hour3, "3H": Hour3,
	"4h": Hour4, "4H": Hour4,
	"1d": Daily, "1D": Daily, "d": Daily,
	"1w": Weekly, "1W": Weekly, "w": Weekly,
	"1M": Monthly, "M": Monthly,
}

// ParseTimeframe converts a string spelling ("1m", "1H", "d", ...) to a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	if tf, ok := aliases[s]; ok {
		return tf, nil
	}
	return "", fmt.Errorf("unknown timeframe: %q", s)
}

// Valid reports whether tf is a supported timeframe.
func (tf Timeframe) Valid() bool {
	if tf == Monthly {
		return true
	}
	_, ok := durations[tf]
	return ok
}

// NextAfter returns the trigger time one interval after t.
// Monthly advances by calendar month; all others by fixed duration.
func (tf Timeframe) NextAfter(t time.Time) time.Time {
	if tf == Monthly {
		return t.AddDate(0, 1, 0)
	}
	return t.Add(durations[tf])
}

func (tf Timeframe) String() string {
	return string(tf)
}
