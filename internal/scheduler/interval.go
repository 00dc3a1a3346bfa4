package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseIntervalDuration parses compact timeframe notation ("30s", "15m",
// "1h", "4h", "1d", "1w") into a time.Duration.
func ParseIntervalDuration(interval string) (time.Duration, error) {
	trimmed := strings.ToLower(strings.TrimSpace(interval))
	if trimmed == "" {
		return 0, fmt.Errorf("empty interval")
	}
	unit := trimmed[len(trimmed)-1]
	numStr := strings.TrimSpace(trimmed[:len(trimmed)-1])
	if numStr == "" {
		return 0, fmt.Errorf("interval %q has no magnitude", interval)
	}
	n, err := strconv.Atoi(numStr)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("interval %q has invalid magnitude", interval)
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("interval %q has unknown unit %q", interval, string(unit))
	}
}
