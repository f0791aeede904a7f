// Package format renders sizes and durations for status lines.
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// HumanizeBytes converts a byte count into a binary-prefixed string (e.g., "1.5 MiB").
func HumanizeBytes(b int64) string {
	if b < 0 {
		b = 0
	}
	return humanize.IBytes(uint64(b))
}

// Megabytes renders a size the way status messages expect it: "12.3 MB".
func Megabytes(b int64) string {
	return fmt.Sprintf("%.1f MB", float64(b)/(1024*1024))
}

// Clock renders a duration as H:MM:SS or M:SS.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
