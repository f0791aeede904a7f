//go:build !windows

package deps

import (
	"fmt"
	"os"
)

// PersistUserPath cannot edit shell profiles, so outside Windows it only
// reports whether dir is already on PATH and otherwise returns the line to add.
func PersistUserPath(dir string) (bool, error) {
	if PathListContains(os.Getenv("PATH"), dir, string(os.PathListSeparator), false) {
		return false, nil
	}
	return false, fmt.Errorf("%w: add this to your shell profile: export PATH=\"$PATH:%s\"", ErrManualPath, dir)
}

// IsElevated reports whether the process runs as root.
func IsElevated() bool {
	return os.Geteuid() == 0
}
