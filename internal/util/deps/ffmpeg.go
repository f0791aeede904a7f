package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
)

// Where an ffmpeg location came from.
const (
	SourceOverride  = "override"
	SourceCandidate = "candidate"
	SourcePath      = "PATH"
)

// FFmpegLocation is a resolved ffmpeg install. Dir is what yt-dlp's
// --ffmpeg-location receives; Binary is the ffmpeg executable itself.
type FFmpegLocation struct {
	Dir    string
	Binary string
	Source string
}

// Check is one candidate directory examined during resolution.
type Check struct {
	Dir   string
	Found bool
}

// Locator resolves ffmpeg. The zero value is not usable; see NewLocator.
// Fields are exported so tests and `doctor` can substitute the environment.
type Locator struct {
	GOOS       string
	Override   string
	Candidates []string
	LookPath   func(string) (string, error)
	IsFile     func(string) bool
}

// NewLocator builds a Locator for the running platform.
func NewLocator(override string) *Locator {
	return &Locator{
		GOOS:       runtime.GOOS,
		Override:   override,
		Candidates: FFmpegCandidates(runtime.GOOS, Env()),
		LookPath:   exec.LookPath,
		IsFile:     isFile,
	}
}

// LocateFFmpeg resolves ffmpeg for one job. Nothing is cached: every call
// checks again, so an install made while the app is running is picked up.
func LocateFFmpeg(override string) (FFmpegLocation, error) {
	loc, _, err := NewLocator(override).Locate()
	return loc, err
}

// Locate checks the override, then each candidate directory, then PATH.
// It also returns the candidates checked, for diagnostics.
func (l *Locator) Locate() (FFmpegLocation, []Check, error) {
	bin := exeName(l.GOOS, "ffmpeg")

	if l.Override != "" {
		if l.IsFile(l.Override) {
			return FFmpegLocation{Dir: filepath.Dir(l.Override), Binary: l.Override, Source: SourceOverride}, nil, nil
		}
		p := filepath.Join(l.Override, bin)
		if l.IsFile(p) {
			return FFmpegLocation{Dir: l.Override, Binary: p, Source: SourceOverride}, nil, nil
		}
		return FFmpegLocation{}, nil, fmt.Errorf("%w at %q", ErrFFmpegNotFound, l.Override)
	}

	checks := make([]Check, 0, len(l.Candidates))
	for _, dir := range l.Candidates {
		p := filepath.Join(dir, bin)
		found := l.IsFile(p)
		checks = append(checks, Check{Dir: dir, Found: found})
		if found {
			return FFmpegLocation{Dir: dir, Binary: p, Source: SourceCandidate}, checks, nil
		}
	}

	if p, err := l.LookPath("ffmpeg"); err == nil {
		return FFmpegLocation{Dir: filepath.Dir(p), Binary: p, Source: SourcePath}, checks, nil
	}

	return FFmpegLocation{}, checks, fmt.Errorf("%w. %s", ErrFFmpegNotFound, installInstructions(l.GOOS))
}

// Environment holds the directories candidate paths are derived from.
type Environment struct {
	Home         string
	ExeDir       string
	LocalAppData string
	Glob         func(pattern string) ([]string, error)
}

// Env captures the current process environment.
func Env() Environment {
	e := Environment{Glob: filepath.Glob}
	e.Home, _ = os.UserHomeDir()
	if exe, err := os.Executable(); err == nil {
		e.ExeDir = filepath.Dir(exe)
	}
	e.LocalAppData = os.Getenv("LOCALAPPDATA")
	if e.LocalAppData == "" && e.Home != "" {
		e.LocalAppData = filepath.Join(e.Home, "AppData", "Local")
	}
	return e
}

// FFmpegCandidates lists the fixed directories searched for ffmpeg, most
// specific first. Paths are built with filepath, so Windows entries only
// make sense when evaluated on Windows.
func FFmpegCandidates(goos string, env Environment) []string {
	var out []string
	switch goos {
	case "windows":
		out = append(out,
			`C:\ffmpeg\bin`,
			`C:\Program Files\ffmpeg\bin`,
		)
		if env.LocalAppData != "" && env.Glob != nil {
			// winget unpacks into a versioned folder; newest first.
			pattern := filepath.Join(env.LocalAppData, "Microsoft", "WinGet", "Packages", "Gyan.FFmpeg*", "ffmpeg-*", "bin")
			if matches, err := env.Glob(pattern); err == nil {
				sort.Sort(sort.Reverse(sort.StringSlice(matches)))
				out = append(out, matches...)
			}
		}
	case "darwin":
		out = append(out, "/opt/homebrew/bin", "/usr/local/bin")
	default:
		out = append(out, "/usr/bin", "/usr/local/bin", "/snap/bin")
	}
	if env.ExeDir != "" {
		out = append(out, filepath.Join(env.ExeDir, "ffmpeg", "bin"))
		if goos == "windows" {
			out = append(out, filepath.Join(env.ExeDir, "venv", "Scripts"))
		}
	}
	return out
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}
