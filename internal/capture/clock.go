package capture

import (
	"fmt"
	"time"
)

// Elapsed returns the whole seconds between start and now, floored.
// ok is false when no start time has been latched.
func Elapsed(start *time.Time, now time.Time) (seconds int64, ok bool) {
	if start == nil {
		return 0, false
	}
	d := now.Sub(*start)
	if d < 0 {
		return 0, true
	}
	return int64(d / time.Second), true
}

// FormatElapsed renders the elapsed time the way the monitoring screen shows it
func FormatElapsed(start *time.Time, now time.Time) string {
	seconds, ok := Elapsed(start, now)
	if !ok {
		return NotStarted
	}
	return fmt.Sprintf("%ds", seconds)
}
