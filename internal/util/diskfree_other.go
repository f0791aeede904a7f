//go:build !linux && !darwin && !freebsd && !windows

package util

// FreeSpace is unknown on this platform.
func FreeSpace(string) int64 { return -1 }
