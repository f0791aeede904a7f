// Package encoder runs ffmpeg over finished downloads. Today that is the
// trim step applied when a job carries start/end markers.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"funlight/internal/progress"
	"funlight/internal/util"
)

// Options control ffmpeg execution.
type Options struct {
	FFmpegPath string
	Runner     util.CmdRunner
	Reporter   progress.Reporter
	JobID      string
	// Duration of the source, used to compute percent. Zero means unknown.
	Duration time.Duration
}

// Trim cuts ts.Input to the requested span. When ts.Output is empty the
// input is replaced in place. It returns the size of the resulting file.
func Trim(ctx context.Context, ts TrimSpec, opts Options) (int64, error) {
	if opts.FFmpegPath == "" {
		return 0, errors.New("ffmpeg path is required")
	}
	if ts.Input == "" {
		return 0, errors.New("input path is required")
	}
	if ts.Start == nil && ts.End == nil {
		return util.FileSize(ts.Input), nil
	}
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	rep := opts.Reporter
	if rep == nil {
		rep = progress.Discard
	}

	final := ts.Output
	if final == "" {
		final = ts.Input
	}
	ext := filepath.Ext(ts.Input)
	tmp := strings.TrimSuffix(ts.Input, ext) + ".trim" + ext
	ts.Output = tmp

	span := ts.Span(opts.Duration)
	state := &ProgressState{}
	_, runErr := runner.Run(ctx, util.CmdSpec{
		Path: opts.FFmpegPath,
		Args: BuildTrimArgs(ts, true),
		StdoutLine: func(line string) {
			if u, ok := state.UpdateFromLine(line, opts.JobID, span.Seconds()); ok {
				rep.Update(u)
			}
		},
		StderrLine: func(line string) {
			rep.Log(progress.Log{JobID: opts.JobID, Stream: progress.StreamStderr, Line: line})
		},
	})
	if runErr != nil {
		_ = util.RemoveIfExists(tmp)
		return 0, fmt.Errorf("ffmpeg trim failed: %w", runErr)
	}

	if err := os.Rename(tmp, final); err != nil {
		_ = util.RemoveIfExists(tmp)
		return 0, fmt.Errorf("replace trimmed file: %w", err)
	}
	return util.FileSize(final), nil
}
