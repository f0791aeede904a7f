package downloader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"funlight/internal/progress"
)

// ParseProgress parses yt-dlp progress output lines.
// Returns a progress.Update if the line contains download progress, and ok=true.
func ParseProgress(line, jobID string) (u progress.Update, ok bool) {
	// [download]  45.2% of 10.00MiB at  1.50MiB/s ETA 00:04
	// [download]  45.2% of ~ 10.00MiB at  1.50MiB/s ETA 00:04 (frag 3/20)
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[download]") {
		return progress.Update{}, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "[download]"))

	idx := strings.Index(rest, "%")
	if idx == -1 {
		return progress.Update{}, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSpace(rest[:idx]), 64)
	if err != nil {
		return progress.Update{}, false
	}

	var speed *string
	if i := strings.Index(rest, " at "); i != -1 {
		fields := strings.Fields(rest[i+4:])
		if len(fields) > 0 && fields[0] != "Unknown" {
			s := fields[0]
			speed = &s
		}
	}

	var eta *time.Duration
	if i := strings.Index(rest, "ETA "); i != -1 {
		fields := strings.Fields(rest[i+4:])
		if len(fields) > 0 {
			if d, err := parseETA(fields[0]); err == nil {
				eta = &d
			}
		}
	}

	return progress.Update{
		JobID:   jobID,
		Stage:   progress.StageDownloading,
		Percent: percent,
		Speed:   speed,
		ETA:     eta,
		Message: fmt.Sprintf("Downloading: %.1f%%", percent),
	}, true
}

// parseETA parses duration strings like "00:04", "01:23:45", etc.
func parseETA(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid ETA %q", s)
	}
	var total int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("invalid ETA %q: %w", s, err)
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}
