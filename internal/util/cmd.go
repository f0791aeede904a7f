package util

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// CmdSpec describes a subprocess to run.
type CmdSpec struct {
	Path string   // Binary path
	Args []string // Arguments
	Env  []string // Optional environment variables (KEY=VALUE). If nil, inherit.
	Dir  string   // Working directory; empty = inherit.

	StdoutLine    func(string) // Called for each stdout line (if non-nil)
	StderrLine    func(string) // Called for each stderr line (if non-nil)
	CaptureStdout bool         // When false, stdout is only buffered if StdoutLine is nil
}

// CmdResult contains captured output and exit status.
type CmdResult struct {
	Stdout []byte
	Stderr []byte
	Code   int
	Err    error
}

// CmdRunner runs subprocesses. Tests swap in fakes.
type CmdRunner interface {
	Run(ctx context.Context, spec CmdSpec) (CmdResult, error)
}

// ExecRunner runs real processes via os/exec.
type ExecRunner struct {
	Logger *slog.Logger
}

// NewDefaultRunner returns an ExecRunner logging through slog.Default.
func NewDefaultRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command, invoking line callbacks as output arrives.
// Stderr is always captured. On non-zero exit it returns an error carrying
// the exit code, with CmdResult still populated.
func (r *ExecRunner) Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}

	logger.Debug("exec", "cmd", ShellQuote(spec.Path, spec.Args))

	if err := cmd.Start(); err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		keep := spec.CaptureStdout || spec.StdoutLine == nil
		if err := scanLines(stdoutPipe, spec.StdoutLine, &stdoutBuf, keep); err != nil {
			logger.Debug("stdout scan error", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := scanLines(stderrPipe, spec.StderrLine, &stderrBuf, true); err != nil {
			logger.Debug("stderr scan error", "error", err)
		}
	}()

	// Readers must drain before Wait closes the pipes.
	wg.Wait()
	waitErr := cmd.Wait()

	code := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	res := CmdResult{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.Bytes(),
		Code:   code,
		Err:    waitErr,
	}
	if waitErr != nil {
		return res, fmt.Errorf("command failed (exit %d): %w", code, waitErr)
	}
	return res, nil
}

// scanLines feeds each line to fn and optionally buffers it.
// The buffer is large enough for yt-dlp --dump-json output, which can
// exceed 500KB for a single line.
func scanLines(r io.Reader, fn func(string), buf *bytes.Buffer, keep bool) error {
	const maxCapacity = 4 * 1024 * 1024
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxCapacity)
	sc.Split(scanLinesCR)
	for sc.Scan() {
		line := sc.Text()
		if fn != nil {
			fn(line)
		}
		if keep {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	err := sc.Err()
	// Keep draining so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
	return err
}

// scanLinesCR splits on \n and on bare \r, since ffmpeg and yt-dlp
// redraw progress lines with carriage returns.
func scanLinesCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' {
			return i + 1, bytes.TrimSuffix(data[:i], []byte{'\r'}), nil
		}
		if b == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if !atEOF {
				// Need one more byte to tell \r from \r\n.
				return 0, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// ShellQuote returns a printable shell-like command string for logging.
func ShellQuote(path string, args []string) string {
	b := &strings.Builder{}
	b.WriteString(quote(path))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`(){}[]*&;|<>?!") {
		return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
	}
	return s
}
