package monitor

import (
	"strconv"
	"strings"
	"time"
)

// DefaultWindow is the fallback lookback used when a window string cannot be parsed
const DefaultWindow = 5 * time.Minute

// ParseTimeWindow converts a short window string of the form <integer><unit>
// into a duration. Unit is one of s, m, h, d. The parser is forgiving, any
// malformed input yields DefaultWindow rather than an error, a bad window
// coming from a dashboard query must never fail the request.
func ParseTimeWindow(window string) time.Duration {
	s := strings.TrimSpace(window)
	if len(s) < 2 {
		return DefaultWindow
	}

	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || num < 0 {
		return DefaultWindow
	}

	switch s[len(s)-1] {
	case 's':
		return time.Duration(num) * time.Second
	case 'm':
		return time.Duration(num) * time.Minute
	case 'h':
		return time.Duration(num) * time.Hour
	case 'd':
		return time.Duration(num) * 24 * time.Hour
	}
	return DefaultWindow
}
