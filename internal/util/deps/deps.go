// Package deps locates and installs the external tools funlight drives:
// the yt-dlp extractor and the ffmpeg transcoder.
package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var (
	ErrDownloaderNotFound = errors.New("yt-dlp not found")
	ErrFFmpegNotFound     = errors.New("ffmpeg not found")
)

// FindDownloader returns the path to yt-dlp or youtube-dl.
// If customPath is non-empty, it tries that path or looks it up in PATH.
func FindDownloader(customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("%w at %q", ErrDownloaderNotFound, customPath)
	}
	for _, name := range []string{"yt-dlp", "youtube-dl"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	if p := cachedDownloader(); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("%w in PATH. Install it with 'funlight setup --ytdlp' or from https://github.com/yt-dlp/yt-dlp", ErrDownloaderNotFound)
}

// InstallInstructions returns platform-specific ffmpeg installation hints.
func InstallInstructions() string {
	return installInstructions(runtime.GOOS)
}

func installInstructions(goos string) string {
	switch goos {
	case "darwin":
		return "Install with: brew install ffmpeg (or run 'funlight setup')"
	case "linux":
		return "Install with: apt-get install ffmpeg (Ubuntu/Debian) or yum install ffmpeg (CentOS/RHEL)"
	case "windows":
		return "Run 'funlight setup' as administrator, or install with: winget install Gyan.FFmpeg"
	default:
		return "Download from https://ffmpeg.org/download.html"
	}
}

func exeName(goos, name string) string {
	if goos == "windows" {
		return name + ".exe"
	}
	return name
}
