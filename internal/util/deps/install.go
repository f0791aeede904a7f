package deps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"funlight/internal/util"
)

var (
	// ErrNoPackageManager is returned when ffmpeg cannot be installed automatically.
	ErrNoPackageManager = errors.New("no supported package manager")
	// ErrManualPath means the PATH change must be made by the user.
	ErrManualPath = errors.New("PATH must be updated manually")
)

// InstallDownloader makes sure a yt-dlp binary is available, downloading a
// pinned release into the user cache when none is found.
func InstallDownloader(ctx context.Context) (path, version string, err error) {
	res, err := ytdlp.Install(ctx, &ytdlp.InstallOptions{})
	if err != nil {
		return "", "", fmt.Errorf("install yt-dlp: %w", err)
	}
	return res.Executable, res.Version, nil
}

// cachedDownloader returns a yt-dlp previously fetched by InstallDownloader,
// without touching the network.
func cachedDownloader() string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := ytdlp.Install(ctx, &ytdlp.InstallOptions{DisableDownload: true})
	if err != nil || res == nil {
		return ""
	}
	return res.Executable
}

// PackageInstall returns the package-manager command that installs ffmpeg
// on goos, or ErrNoPackageManager with manual instructions.
func PackageInstall(goos string) (util.CmdSpec, error) {
	switch goos {
	case "windows":
		return util.CmdSpec{
			Path: "winget",
			Args: []string{"install", "--id", "Gyan.FFmpeg", "-e", "--accept-source-agreements", "--accept-package-agreements"},
		}, nil
	case "darwin":
		return util.CmdSpec{Path: "brew", Args: []string{"install", "ffmpeg"}}, nil
	default:
		return util.CmdSpec{}, fmt.Errorf("%w on %s. %s", ErrNoPackageManager, goos, installInstructions(goos))
	}
}

// InstallFFmpeg runs the platform package manager, streaming its output to
// line. The caller re-resolves the location afterwards.
func InstallFFmpeg(ctx context.Context, runner util.CmdRunner, goos string, line func(string)) error {
	spec, err := PackageInstall(goos)
	if err != nil {
		return err
	}
	spec.StdoutLine = line
	spec.StderrLine = line
	res, err := runner.Run(ctx, spec)
	if err != nil {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg != "" {
			return fmt.Errorf("%s %s: %w: %s", spec.Path, strings.Join(spec.Args, " "), err, msg)
		}
		return fmt.Errorf("%s %s: %w", spec.Path, strings.Join(spec.Args, " "), err)
	}
	return nil
}

// PathListContains reports whether dir is already an entry of a PATH-style
// list. Comparison ignores case and trailing separators when foldCase is set,
// which is how Windows treats PATH.
func PathListContains(list, dir string, sep string, foldCase bool) bool {
	norm := func(s string) string {
		s = strings.TrimSpace(s)
		s = strings.TrimRight(s, `\/`)
		if foldCase {
			s = strings.ToLower(s)
		}
		return s
	}
	want := norm(dir)
	if want == "" {
		return false
	}
	for _, entry := range strings.Split(list, sep) {
		if norm(entry) == want {
			return true
		}
	}
	return false
}

// AppendPathList appends dir to a PATH-style list unless already present.
func AppendPathList(list, dir, sep string, foldCase bool) (string, bool) {
	if PathListContains(list, dir, sep, foldCase) {
		return list, false
	}
	list = strings.TrimRight(list, sep)
	if list == "" {
		return dir, true
	}
	return list + sep + dir, true
}
