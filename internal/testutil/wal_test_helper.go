package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/INLOpen/nexuswal/core"
	"github.com/INLOpen/nexuswal/sys"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// InsertEntries returns count Insert entries whose EncodedSize is
// 17+payloadSize, with increasing transaction ids and timestamps.
func InsertEntries(count, payloadSize int) []core.Entry {
	entries := make([]core.Entry, count)
	for i := range entries {
		payload := make([]byte, payloadSize)
		for j := range payload {
			payload[j] = byte('a' + (i+j)%26)
		}
		entries[i] = core.NewEntry(core.EntryKindInsert, payload, uint64(i+1), 1_700_000_000+float64(i))
	}
	return entries
}

// WriteSegment writes entries as segment seq in dir, bypassing any manager.
func WriteSegment(t *testing.T, dir string, seq uint64, entries []core.Entry) string {
	t.Helper()
	data, err := core.EncodeEntries(entries)
	if err != nil {
		t.Fatalf("failed to encode segment %d: %v", seq, err)
	}
	path := filepath.Join(dir, core.FormatSegmentFileName(seq))
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write segment %s: %v", path, err)
	}
	return path
}

// ReadSegment decodes segment seq in dir and fails the test on any error.
func ReadSegment(t *testing.T, dir string, seq uint64) []core.Entry {
	t.Helper()
	path := filepath.Join(dir, core.FormatSegmentFileName(seq))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read segment %s: %v", path, err)
	}
	entries, err := core.DecodeEntries(data)
	if err != nil {
		t.Fatalf("failed to decode segment %s: %v", path, err)
	}
	return entries
}

// SegmentSequences returns the sequence numbers of the segment files in dir,
// ascending. Non-segment files are skipped.
func SegmentSequences(t *testing.T, dir string) []uint64 {
	t.Helper()
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir %s: %v", dir, err)
	}
	var seqs []uint64
	for _, f := range files {
		if seq, err := core.ParseSegmentFileName(f.Name()); err == nil {
			seqs = append(seqs, seq)
		}
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs
}

// InjectRenameError makes every sys.Rename fail with err until the test ends
// or the returned restore function is called.
func InjectRenameError(t *testing.T, err error) (restore func()) {
	t.Helper()
	orig := sys.Rename
	sys.Rename = func(oldpath, newpath string) error { return err }
	restored := false
	restore = func() {
		if !restored {
			sys.Rename = orig
			restored = true
		}
	}
	t.Cleanup(restore)
	return restore
}
