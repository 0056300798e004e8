package sys

import "errors"

var (
	// ErrLocked is returned when another holder keeps the lock past the timeout.
	ErrLocked = errors.New("file is locked by another process")
	// ErrLockNotSupported is returned on platforms without advisory locks.
	ErrLockNotSupported = errors.New("file locking not supported on this platform")
)
