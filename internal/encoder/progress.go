package encoder

import (
	"fmt"
	"strconv"
	"strings"

	"funlight/internal/progress"
)

// ProgressState accumulates ffmpeg -progress key=value lines. Each block
// ends with a "progress=" line, which is when an update is produced.
type ProgressState struct {
	OutTimeUs int64
	SpeedStr  string
	TotalSize int64
}

// UpdateFromLine updates the state from one line and returns an update
// when a block is complete. durationSec is the expected output length;
// zero leaves the percent unknown.
func (ps *ProgressState) UpdateFromLine(line string, jobID string, durationSec float64) (u progress.Update, ok bool) {
	key, val, found := strings.Cut(line, "=")
	if !found {
		return progress.Update{}, false
	}
	key = strings.TrimSpace(key)
	val = strings.TrimSpace(val)

	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys carry microseconds; out_time_ms is a historical misnomer.
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			ps.OutTimeUs = v
		}
	case "speed":
		ps.SpeedStr = val
	case "total_size":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			ps.TotalSize = v
		}
	case "progress":
		percent := -1.0
		if durationSec > 0 {
			percent = float64(ps.OutTimeUs) / (durationSec * 1_000_000) * 100
			if percent > 100 || val == "end" {
				percent = 100
			}
			if percent < 0 {
				percent = 0
			}
		}

		var speedPtr *string
		if ps.SpeedStr != "" && ps.SpeedStr != "N/A" {
			s := ps.SpeedStr
			speedPtr = &s
		}
		var bytesPtr *int64
		if ps.TotalSize > 0 {
			b := ps.TotalSize
			bytesPtr = &b
		}

		msg := "Trimming"
		if percent >= 0 {
			msg = fmt.Sprintf("Trimming: %.1f%%", percent)
		}
		return progress.Update{
			JobID:   jobID,
			Stage:   progress.StageTrimming,
			Percent: percent,
			Speed:   speedPtr,
			Bytes:   bytesPtr,
			Message: msg,
		}, true
	}
	return progress.Update{}, false
}
