package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeWindow(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"90m", 90 * time.Minute},
		{" 15m ", 15 * time.Minute},
		{"", DefaultWindow},
		{"m", DefaultWindow},
		{"5", DefaultWindow},
		{"abc", DefaultWindow},
		{"5w", DefaultWindow},
		{"-5m", DefaultWindow},
		{"5.5h", DefaultWindow},
		{"garbage input", DefaultWindow},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseTimeWindow(tc.input))
		})
	}
}

func TestParseTimeWindowMilliseconds(t *testing.T) {
	// the documented contract values
	assert.EqualValues(t, 30_000, ParseTimeWindow("30s").Milliseconds())
	assert.EqualValues(t, 300_000, ParseTimeWindow("5m").Milliseconds())
	assert.EqualValues(t, 7_200_000, ParseTimeWindow("2h").Milliseconds())
	assert.EqualValues(t, 86_400_000, ParseTimeWindow("1d").Milliseconds())
	assert.EqualValues(t, 300_000, ParseTimeWindow("nonsense").Milliseconds())
}
