//go:build unix

package sys

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// AcquireFileLock attempts to acquire an advisory exclusive lock on lockPath
// using flock. It opens (or creates) the file and retries until timeout
// elapses. On success it returns a release function that unlocks and closes
// the file. The lock file itself is left in place.
func AcquireFileLock(lockPath string, timeout time.Duration) (func() error, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	fd := int(f.Fd())
	deadline := time.Now().Add(timeout)
	for {
		err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			release := func() error {
				unlockErr := unix.Flock(fd, unix.LOCK_UN)
				closeErr := f.Close()
				if unlockErr != nil {
					return unlockErr
				}
				return closeErr
			}
			return release, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EINTR {
			_ = f.Close()
			return nil, fmt.Errorf("flock %s: %w", lockPath, err)
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
		}
		time.Sleep(25 * time.Millisecond)
	}
}
