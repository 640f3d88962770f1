//go:build windows

package storage

import (
	"golang.org/x/sys/windows"
)

// atomicRename replaces newpath with MoveFileEx; os.Rename refuses an
// existing target on some Windows filesystems.
func atomicRename(oldpath, newpath string) error {
	from, err := windows.UTF16PtrFromString(oldpath)
	if err != nil {
		return err
	}
	to, err := windows.UTF16PtrFromString(newpath)
	if err != nil {
		return err
	}
	return windows.MoveFileEx(from, to, windows.MOVEFILE_REPLACE_EXISTING)
}
