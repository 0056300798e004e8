package core

import (
	"fmt"
	"strconv"
	"strings"
)

// This file centralizes constants related to file formats, magic numbers,
// and file names used by the WAL.

// --- Magic Numbers ---
const (
	// SegmentMagicNumber identifies a WAL segment container ("WALS").
	SegmentMagicNumber uint32 = 0x57414C53
	// CheckpointMagicNumber identifies the CHECKPOINT marker file.
	CheckpointMagicNumber uint32 = 0x54504B43
)

// --- File Names & Prefixes ---
const (
	// SegmentFilePrefix is the prefix of every segment file, e.g. wal12.log.
	SegmentFilePrefix = "wal"
	// SegmentFileExt is the extension the recovery scan filters on.
	SegmentFileExt = ".log"
	// TempFileSuffix is appended to a file name while it is being rewritten.
	TempFileSuffix = ".tmp"
	// CheckpointFileName is the name of the file storing the last sealed sequence.
	CheckpointFileName = "CHECKPOINT"
	// LockFileName is the advisory lock held by a manager opened with an exclusive lock.
	LockFileName = "LOCK"
)

// --- Protocol & Format Versions ---
const (
	// FormatVersion is the current version of the segment container format.
	FormatVersion uint8 = 1
)

// FormatSegmentFileName creates a segment file name from its sequence number.
func FormatSegmentFileName(sequence uint64) string {
	return fmt.Sprintf("%s%d%s", SegmentFilePrefix, sequence, SegmentFileExt)
}

// ParseSegmentFileName extracts the sequence number from a segment file name.
// Sequence numbers start at 1.
func ParseSegmentFileName(name string) (uint64, error) {
	if !strings.HasPrefix(name, SegmentFilePrefix) || !strings.HasSuffix(name, SegmentFileExt) {
		return 0, fmt.Errorf("file %s is not a WAL segment file", name)
	}
	num := strings.TrimSuffix(strings.TrimPrefix(name, SegmentFilePrefix), SegmentFileExt)
	seq, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sequence in segment file name %s: %w", name, err)
	}
	// Only the canonical spelling counts, so wal01.log cannot shadow wal1.log.
	if seq == 0 || FormatSegmentFileName(seq) != name {
		return 0, fmt.Errorf("file %s is not a canonical WAL segment file name", name)
	}
	return seq, nil
}

// FormatTempFilename returns the name used while rewriting the given file.
func FormatTempFilename(name string) string {
	return name + TempFileSuffix
}
