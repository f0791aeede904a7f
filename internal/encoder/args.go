package encoder

import (
	"strconv"
	"time"
)

// TrimSpec describes a cut of an already converted file.
type TrimSpec struct {
	Input  string
	Output string
	Start  *time.Duration
	End    *time.Duration
	// Reencode cuts exactly instead of snapping video to keyframes.
	Reencode bool
}

// BuildTrimArgs constructs ffmpeg arguments that cut Input to [Start, End).
// Both markers are input options, so -to is a position in the source.
func BuildTrimArgs(ts TrimSpec, includeProgress bool) []string {
	args := []string{"-hide_banner", "-y"}
	if ts.Start != nil {
		args = append(args, "-ss", seconds(*ts.Start))
	}
	if ts.End != nil {
		args = append(args, "-to", seconds(*ts.End))
	}
	args = append(args, "-i", ts.Input)
	if ts.Reencode {
		args = append(args, "-map", "0")
	} else {
		args = append(args, "-map", "0", "-c", "copy")
	}
	if includeProgress {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}
	return append(args, ts.Output)
}

// Span returns the trimmed duration given the full duration, or 0 if unknown.
func (ts TrimSpec) Span(full time.Duration) time.Duration {
	start := time.Duration(0)
	if ts.Start != nil {
		start = *ts.Start
	}
	end := full
	if ts.End != nil && (full <= 0 || *ts.End < full) {
		end = *ts.End
	}
	if end <= start {
		return 0
	}
	return end - start
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
