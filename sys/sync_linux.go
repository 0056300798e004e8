//go:build linux

package sys

import "golang.org/x/sys/unix"

// SyncData flushes file data to stable storage. On Linux it uses fdatasync,
// skipping the metadata flush that a full fsync performs.
func SyncData(f FileHandle) error {
	fg, ok := f.(interface{ Fd() uintptr })
	if !ok {
		return f.Sync()
	}
	for {
		err := unix.Fdatasync(int(fg.Fd()))
		if err != unix.EINTR {
			return err
		}
	}
}
