// Package downloader drives the yt-dlp executable: metadata lookup, the
// download/convert run, and parsing of its line-oriented output.
package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"funlight/internal/util"
)

// ErrNoInfo means yt-dlp returned no usable metadata for the URL.
var ErrNoInfo = errors.New("could not retrieve video information")

// ExtractorError carries the ERROR lines yt-dlp printed before failing.
type ExtractorError struct {
	Message string
	Err     error
}

func (e *ExtractorError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *ExtractorError) Unwrap() error {
	return e.Err
}

// Client runs yt-dlp through a CmdRunner.
type Client struct {
	Path   string
	Runner util.CmdRunner
}

// FetchInfo runs `yt-dlp --dump-json` with args and decodes the result.
func (c Client) FetchInfo(ctx context.Context, args []string) (Info, error) {
	if c.Path == "" {
		return Info{}, errors.New("downloader path is required")
	}
	res, runErr := c.Runner.Run(ctx, util.CmdSpec{
		Path:          c.Path,
		Args:          args,
		CaptureStdout: true,
	})
	if runErr != nil && len(res.Stdout) == 0 {
		return Info{}, &ExtractorError{Message: errorLines(res.Stderr), Err: fmt.Errorf("metadata fetch failed: %w", runErr)}
	}

	info, err := decodeInfo(res.Stdout)
	if err != nil {
		return Info{}, err
	}
	if info.ID == "" && info.Title == "" {
		return Info{}, ErrNoInfo
	}
	return info, nil
}

// decodeInfo parses the JSON object yt-dlp printed. Extra lines (warnings,
// a second object) are tolerated by falling back to the last valid line.
func decodeInfo(stdout []byte) (Info, error) {
	data := strings.TrimSpace(string(stdout))
	if data == "" || data == "null" {
		return Info{}, ErrNoInfo
	}
	var info Info
	err := json.NewDecoder(strings.NewReader(data)).Decode(&info)
	if err == nil {
		return info, nil
	}
	lines := strings.Split(data, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var tmp Info
		if json.Unmarshal([]byte(line), &tmp) == nil && tmp.ID != "" {
			return tmp, nil
		}
	}
	return Info{}, fmt.Errorf("parse metadata JSON: %w", err)
}

// Download runs yt-dlp with args, feeding every output line to t.
// A failed run returns an *ExtractorError carrying yt-dlp's ERROR lines.
func (c Client) Download(ctx context.Context, args []string, t *Tracker) error {
	if c.Path == "" {
		return errors.New("downloader path is required")
	}
	res, err := c.Runner.Run(ctx, util.CmdSpec{
		Path:       c.Path,
		Args:       args,
		StdoutLine: t.Stdout,
		StderrLine: t.Stderr,
	})
	t.Finish()
	if err != nil {
		msg := t.LastError()
		if msg == "" {
			msg = errorLines(res.Stderr)
		}
		return &ExtractorError{Message: msg, Err: err}
	}
	return nil
}

// errorLines extracts "ERROR:" lines from captured stderr, falling back
// to the last non-empty line.
func errorLines(stderr []byte) string {
	var errs []string
	last := ""
	for _, line := range strings.Split(string(stderr), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		last = line
		if strings.HasPrefix(line, "ERROR:") {
			errs = append(errs, strings.TrimSpace(strings.TrimPrefix(line, "ERROR:")))
		}
	}
	if len(errs) > 0 {
		return strings.Join(errs, "; ")
	}
	return last
}
