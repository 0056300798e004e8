package core

import "errors"

var (
	// ErrCorruptSegment is wrapped by every decode failure, so callers can tell
	// malformed segment bytes apart from I/O errors with errors.Is.
	ErrCorruptSegment = errors.New("corrupt wal segment")
	// ErrInvalidEntryKind is returned for kinds outside the known set.
	ErrInvalidEntryKind = errors.New("invalid wal entry kind")
)

// IsCorruption checks if an error (or any error in its chain) is a decode failure.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorruptSegment)
}
