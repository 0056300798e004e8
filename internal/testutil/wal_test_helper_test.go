package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/INLOpen/nexuswal/sys"
)

func Test_InsertEntries_Size(t *testing.T) {
	entries := InsertEntries(3, 63)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if got := e.EncodedSize(); got != 80 {
			t.Fatalf("entry %d: expected encoded size 80, got %d", i, got)
		}
		if e.TransactionID != uint64(i+1) {
			t.Fatalf("entry %d: expected tx id %d, got %d", i, i+1, e.TransactionID)
		}
	}
}

func Test_WriteSegment_And_SegmentSequences(t *testing.T) {
	tmp := t.TempDir()
	WriteSegment(t, tmp, 3, InsertEntries(1, 4))
	WriteSegment(t, tmp, 1, InsertEntries(2, 4))
	if err := os.WriteFile(filepath.Join(tmp, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	seqs := SegmentSequences(t, tmp)
	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 3 {
		t.Fatalf("unexpected sequences %v", seqs)
	}
	if got := ReadSegment(t, tmp, 1); len(got) != 2 {
		t.Fatalf("expected 2 entries in segment 1, got %d", len(got))
	}
}

func Test_InjectRenameError_Restore(t *testing.T) {
	injected := errors.New("boom")
	restore := InjectRenameError(t, injected)
	if err := sys.Rename("a", "b"); !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	restore()
	if err := sys.Rename(filepath.Join(t.TempDir(), "missing"), "b"); errors.Is(err, injected) {
		t.Fatalf("expected real rename after restore")
	}
}
