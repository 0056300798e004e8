package core

import (
	"fmt"
	"strings"
)

// EntryKind defines the type of an entry in a WAL segment.
// The set is closed: adding a kind requires a new FormatVersion.
type EntryKind byte

const (
	// EntryKindInsert records the insertion of a new value.
	EntryKindInsert EntryKind = 1
	// EntryKindSet records an overwrite of an existing value.
	EntryKindSet EntryKind = 2
	// EntryKindDelete records a deletion.
	EntryKindDelete EntryKind = 3
	// EntryKindCheckpoint marks the end of a segment. It is always the last
	// entry of a sealed segment.
	EntryKindCheckpoint EntryKind = 4
	// EntryKindTransactionBegin opens a transaction.
	EntryKindTransactionBegin EntryKind = 5
	// EntryKindTransactionCommit commits a transaction.
	EntryKindTransactionCommit EntryKind = 6
)

var entryKindNames = map[EntryKind]string{
	EntryKindInsert:            "insert",
	EntryKindSet:               "set",
	EntryKindDelete:            "delete",
	EntryKindCheckpoint:        "checkpoint",
	EntryKindTransactionBegin:  "begin",
	EntryKindTransactionCommit: "commit",
}

// Valid reports whether k is one of the known entry kinds.
func (k EntryKind) Valid() bool {
	return k >= EntryKindInsert && k <= EntryKindTransactionCommit
}

func (k EntryKind) String() string {
	if name, ok := entryKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EntryKind(%d)", byte(k))
}

// IsControl reports whether entries of this kind conventionally carry no payload.
func (k EntryKind) IsControl() bool {
	switch k {
	case EntryKindCheckpoint, EntryKindTransactionBegin, EntryKindTransactionCommit:
		return true
	}
	return false
}

// ParseEntryKind maps a kind name (as printed by String) back to its EntryKind.
func ParseEntryKind(s string) (EntryKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range entryKindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidEntryKind, s)
}

// Fixed-width fields counted by EncodedSize.
const (
	entryKindSize      = 1
	entryTimestampSize = 8
	entryTxIDSize      = 8
)

// Entry represents a single operation recorded in the WAL.
//
// A nil Payload means the entry carries no data, which is the convention for
// control kinds. A non-nil empty Payload is preserved as such by the codec.
type Entry struct {
	Kind EntryKind
	// Payload is the operation data for Insert, Set and Delete.
	Payload []byte
	// Timestamp is seconds since the Unix epoch, assigned by the producer.
	Timestamp float64
	// TransactionID is 0 for entries outside a transaction and for
	// entries the WAL synthesizes itself.
	TransactionID uint64
}

// NewEntry creates an entry. Control kinds get no payload regardless of the
// payload argument.
func NewEntry(kind EntryKind, payload []byte, txID uint64, timestamp float64) Entry {
	if kind.IsControl() {
		payload = nil
	}
	return Entry{
		Kind:          kind,
		Payload:       payload,
		Timestamp:     timestamp,
		TransactionID: txID,
	}
}

// EncodedSize is the accounting size of the entry used for flush thresholds.
// It is not the exact number of bytes the codec produces.
func (e *Entry) EncodedSize() int {
	return entryKindSize + entryTimestampSize + entryTxIDSize + len(e.Payload)
}

// HasPayload reports whether the payload is present (possibly empty).
func (e *Entry) HasPayload() bool {
	return e.Payload != nil
}

// TotalEncodedSize sums EncodedSize over entries.
func TotalEncodedSize(entries []Entry) int {
	total := 0
	for i := range entries {
		total += entries[i].EncodedSize()
	}
	return total
}
