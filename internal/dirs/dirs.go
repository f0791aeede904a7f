// Package dirs resolves per-OS application directories.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName = "funlight"

	// outputFolder is created under the user's Downloads folder.
	outputFolder = "Funlight Converter"
)

// AppName returns the canonical application name for directory paths.
func AppName() string {
	return appName
}

// xdg resolves an XDG base directory on Linux: $env/funlight or ~/<fallback>/funlight.
func xdg(env string, fallback ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return filepath.Join(v, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, appName)...), nil
}

// ConfigDir returns the app's configuration directory.
// - Linux: $XDG_CONFIG_HOME/funlight or ~/.config/funlight
// - macOS: ~/Library/Application Support/funlight
// - Windows: %AppData%/funlight
func ConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return darwinSupport()
	case "linux":
		return xdg("XDG_CONFIG_HOME", ".config")
	default:
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, appName), nil
	}
}

// DataDir returns the app's data directory.
func DataDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return darwinSupport()
	case "linux":
		return xdg("XDG_DATA_HOME", ".local", "share")
	default:
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, appName), nil
	}
}

// CacheDir returns the app's cache directory. yt-dlp bootstraps land here.
func CacheDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return xdg("XDG_CACHE_HOME", ".cache")
	default:
		c, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(c, appName), nil
	}
}

// StateDir returns the app's state directory (history database, TUI log).
// - Linux: $XDG_STATE_HOME/funlight or ~/.local/state/funlight
// - macOS: ~/Library/Application Support/funlight/state
// - Windows: %LocalAppData%/funlight/state
func StateDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		d, err := darwinSupport()
		if err != nil {
			return "", err
		}
		return filepath.Join(d, "state"), nil
	case "linux":
		return xdg("XDG_STATE_HOME", ".local", "state")
	default:
		if la := os.Getenv("LOCALAPPDATA"); la != "" {
			return filepath.Join(la, appName, "state"), nil
		}
		cfg, err := ConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, "state"), nil
	}
}

func darwinSupport() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "Application Support", appName), nil
}

// DefaultOutputDir returns ~/Downloads/Funlight Converter.
func DefaultOutputDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads", outputFolder), nil
}

// HistoryPath returns the default location of the job history database.
func HistoryPath() (string, error) {
	s, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(s, "history.db"), nil
}

// LogPath returns the file the TUI logs into while it owns the terminal.
func LogPath() (string, error) {
	s, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(s, appName+".log"), nil
}

// Ensure creates the directory if it doesn't exist.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll ensures config, data, cache, and state dirs exist.
func EnsureAll() error {
	for _, fn := range []func() (string, error){ConfigDir, DataDir, CacheDir, StateDir} {
		p, err := fn()
		if err != nil {
			continue
		}
		if err := Ensure(p); err != nil {
			return err
		}
	}
	return nil
}
