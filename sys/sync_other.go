//go:build !linux

package sys

// SyncData flushes file data to stable storage.
func SyncData(f FileHandle) error {
	return f.Sync()
}
