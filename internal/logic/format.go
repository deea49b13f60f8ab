package logic

import (
	"fmt"
	"time"
)

// FormatElapsed renders d as MM:SS.mmm. Minutes are not clamped to 59 and
// milliseconds are truncated, not rounded. Negative durations render as zero.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}
