//go:build windows

package util

import "golang.org/x/sys/windows"

// FreeSpace returns the bytes available to the user on the volume holding
// dir, or -1 when it cannot be determined.
func FreeSpace(dir string) int64 {
	ptr, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return -1
	}
	var free, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &free, &total, &totalFree); err != nil {
		return -1
	}
	return int64(free)
}
