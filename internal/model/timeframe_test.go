package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in   string
		want Timeframe
	}{
		{"1", Minute1},
		{"1m", Minute1},
		{"15m", Minute15},
		{"45", Minute45},
		{"1h", Hour1},
		{"4H", Hour4},
		{"d", Daily},
		{"1D", Daily},
		{"1w", Weekly},
		{"1M", Monthly},
	}
	for _, tt := range tests {
		got, err := ParseTimeframe(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "7m", "2D", "monthly"} {
		_, err := ParseTimeframe(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeframeValid(t *testing.T) {
	assert.True(t, Minute1.Valid())
	assert.True(t, Monthly.Valid())
	assert.False(t, Timeframe("13").Valid())
	assert.False(t, Timeframe("").Valid())
}

func TestNextAfter(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, t0.Add(time.Minute), Minute1.NextAfter(t0))
	assert.Equal(t, t0.Add(4*time.Hour), Hour4.NextAfter(t0))
	assert.Equal(t, t0.AddDate(0, 0, 1), Daily.NextAfter(t0))
	assert.Equal(t, t0.AddDate(0, 0, 7), Weekly.NextAfter(t0))

	// Monthly follows the calendar, not a fixed duration.
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Monthly.NextAfter(t0))
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Monthly.NextAfter(feb))
}
