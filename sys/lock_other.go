//go:build !unix

package sys

import "time"

// AcquireFileLock is not available on this platform.
func AcquireFileLock(lockPath string, timeout time.Duration) (func() error, error) {
	return nil, ErrLockNotSupported
}
