package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/developerxnoxs/xnoxs-feed/internal/model"
)

// Parse errors.
var (
	ErrNoSeries  = errors.New("no series payload in response")
	ErrBadRecord = errors.New("malformed series record")
)

var (
	// seriesRe locates the quoted bar array: "s":[{...},{...}]
	seriesRe = regexp.MustCompile(`"s":\[(.+?)\}\]`)

	// fieldRe splits one record into raw tokens on [ ] : , boundaries.
	fieldRe = regexp.MustCompile(`\[|:|,|\]`)
)

// Token positions within a split record: {"i":0,"v":[ts,o,h,l,c,v]}
// index 4 is the timestamp, 5..9 are OHLCV.
const (
	timestampIdx = 4
	volumeIdx    = 9
)

// ParseBars extracts OHLCV bars from a raw fetch response.
//
// Bars are returned in wire order and tagged with symbolLabel. The second
// return value reports whether the volume column was absent; from the first
// record without a parsable volume onward, volume is zero for every bar.
// A record with no extractable timestamp fails the whole response.
func ParseBars(raw, symbolLabel string) ([]model.Bar, bool, error) {
	match := seriesRe.FindStringSubmatch(raw)
	if match == nil {
		return nil, false, ErrNoSeries
	}

	records := strings.Split(match[1], `,{"`)
	bars := make([]model.Bar, 0, len(records))
	volumeAbsent := false

	for i, record := range records {
		parts := fieldRe.Split(record, -1)
		if len(parts) <= timestampIdx {
			return nil, false, fmt.Errorf("%w: record %d too short", ErrBadRecord, i)
		}

		ts, err := strconv.ParseFloat(parts[timestampIdx], 64)
		if err != nil {
			return nil, false, fmt.Errorf("%w: record %d timestamp %q", ErrBadRecord, i, parts[timestampIdx])
		}

		var fields [5]float64
		for j := range fields {
			idx := timestampIdx + 1 + j
			if idx == volumeIdx {
				if volumeAbsent || idx >= len(parts) {
					volumeAbsent = true
					continue
				}
				v, err := strconv.ParseFloat(parts[idx], 64)
				if err != nil {
					volumeAbsent = true
					continue
				}
				fields[j] = v
				continue
			}
			if idx >= len(parts) {
				return nil, false, fmt.Errorf("%w: record %d missing field %d", ErrBadRecord, i, j)
			}
			v, err := strconv.ParseFloat(parts[idx], 64)
			if err != nil {
				return nil, false, fmt.Errorf("%w: record %d field %q", ErrBadRecord, i, parts[idx])
			}
			fields[j] = v
		}

		sec := int64(ts)
		nsec := int64((ts - float64(sec)) * float64(time.Second))
		bars = append(bars, model.Bar{
			Symbol: symbolLabel,
			Time:   time.Unix(sec, nsec).UTC(),
			Open:   fields[0],
			High:   fields[1],
			Low:    fields[2],
			Close:  fields[3],
			Volume: fields[4],
		})
	}

	return bars, volumeAbsent, nil
}
