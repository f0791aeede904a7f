//go:build linux || darwin || freebsd

package util

import "golang.org/x/sys/unix"

// FreeSpace returns the bytes available to the user on the volume holding
// dir, or -1 when it cannot be determined.
func FreeSpace(dir string) int64 {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return -1
	}
	return int64(st.Bavail) * int64(st.Bsize)
}
