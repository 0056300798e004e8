package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INLOpen/nexuswal/core"
	"github.com/INLOpen/nexuswal/hooks/listeners"
	"github.com/INLOpen/nexuswal/internal/testutil"
)

// runCLI runs walctl against dir with logging disabled and returns stdout.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Run(append([]string{"--dir", dir, "--log-output", "none"}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func TestAppendAndDump(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "append", "--payload", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "appended insert entry to "+filepath.Join(dir, "wal1.log"))

	_, err = runCLI(t, dir, "append", "--kind", "delete", "--payload", "gone", "--tx", "7")
	require.NoError(t, err)

	out, err = runCLI(t, dir, "dump")
	require.NoError(t, err)
	assert.Contains(t, out, "wal1.log: 2 entries")
	assert.Contains(t, out, `"hello"`)
	assert.Contains(t, out, "delete")
	assert.Contains(t, out, `"gone"`)

	entries := testutil.ReadSegment(t, dir, 1)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(7), entries[1].TransactionID)
}

func TestAppend_PageSizeSealsSegment(t *testing.T) {
	dir := t.TempDir()

	// Each entry accounts for 17 + 4 bytes, so the second append finds the
	// buffer above a 20 byte page.
	_, err := runCLI(t, dir, "--page-size", "20", "append", "--payload", "abcd")
	require.NoError(t, err)
	out, err := runCLI(t, dir, "--page-size", "20", "append", "--payload", "efgh")
	require.NoError(t, err)
	assert.Contains(t, out, "sealed segment 1")

	assert.Equal(t, []uint64{1, 2}, testutil.SegmentSequences(t, dir))
	first := testutil.ReadSegment(t, dir, 1)
	require.Len(t, first, 2)
	assert.Equal(t, core.EntryKindCheckpoint, first[1].Kind)
}

func TestAppend_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "append", "--kind", "upsert")
	assert.ErrorIs(t, err, core.ErrInvalidEntryKind)

	_, err = runCLI(t, dir, "append", "--payload", "too long", "--max-payload", "3")
	assert.ErrorIs(t, err, listeners.ErrPayloadRejected)
	assert.Empty(t, testutil.SegmentSequences(t, dir))
}

func TestCheckpointListAndPurge(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 3; i++ {
		_, err := runCLI(t, dir, "append", "--payload", "x")
		require.NoError(t, err)
		out, err := runCLI(t, dir, "checkpoint")
		require.NoError(t, err)
		assert.Contains(t, out, "next sequence")
	}

	out, err := runCLI(t, dir, "list")
	require.NoError(t, err)
	for _, name := range []string{"wal1.log", "wal2.log", "wal3.log"} {
		assert.Contains(t, out, name)
	}

	out, err = runCLI(t, dir, "purge", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 2 segments")
	assert.Equal(t, []uint64{3}, testutil.SegmentSequences(t, dir))

	_, err = runCLI(t, dir, "purge", "abc")
	assert.Error(t, err)
}

func TestList_Empty(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "list")
	require.NoError(t, err)
	assert.Equal(t, "no segments\n", out)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteSegment(t, dir, 1, testutil.InsertEntries(2, 8))
	testutil.WriteSegment(t, dir, 2, append(testutil.InsertEntries(1, 8), core.NewEntry(core.EntryKindCheckpoint, nil, 0, 1)))
	testutil.WriteSegment(t, dir, 3, testutil.InsertEntries(1, 8))

	out, err := runCLI(t, dir, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "verified 3 segments, 5 entries")
	assert.Contains(t, out, "warning: segment 1 is not sealed")
	assert.NotContains(t, out, "segment 3 is not sealed")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "wal4.log"), []byte("junk"), 0644))
	_, err = runCLI(t, dir, "verify")
	assert.ErrorIs(t, err, core.ErrCorruptSegment)
}

func TestDump_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "dump")
	assert.Error(t, err, "no segments to dump")

	_, err = runCLI(t, dir, "dump", "0")
	assert.Error(t, err)

	_, err = runCLI(t, dir, "dump", "9")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStatus(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteSegment(t, dir, 4, testutil.InsertEntries(3, 8))

	out, err := runCLI(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Active sequence:")
	assert.Contains(t, out, "Buffered entries:")
	assert.Contains(t, out, "nexuswal_wal_active_sequence")
	assert.Contains(t, out, "nexuswal_wal_recovered_entries")

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Active sequence:") {
			assert.Equal(t, "4", strings.TrimSpace(strings.TrimPrefix(line, "Active sequence:")))
		}
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	walDir := filepath.Join(dir, "data")
	cfgPath := filepath.Join(dir, "walctl.yaml")
	cfgYAML := "wal:\n  directory: " + walDir + "\n  page_size_bytes: 20\nlogging:\n  output: none\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0644))

	var stdout, stderr bytes.Buffer
	for i := 0; i < 2; i++ {
		require.NoError(t, Run([]string{"--config", cfgPath, "append", "--payload", "abcd"}, &stdout, &stderr))
	}
	assert.Equal(t, []uint64{1, 2}, testutil.SegmentSequences(t, walDir))

	t.Run("MissingExplicitFile", func(t *testing.T) {
		err := Run([]string{"--config", filepath.Join(dir, "nope.yaml"), "list"}, &stdout, &stderr)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Invalid", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("wal:\n  sync_mode: sometimes\n"), 0644))
		err := Run([]string{"--config", bad, "list"}, &stdout, &stderr)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SyncMode")
	})
}

func TestVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, Run([]string{"version", "--short"}, &stdout, &stderr))
	assert.Equal(t, Version+"\n", stdout.String())
}
