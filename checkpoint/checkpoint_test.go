package checkpoint

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/INLOpen/nexuswal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpoint_WriteAndRead_Successful(t *testing.T) {
	tempDir := t.TempDir()
	cp := Checkpoint{LastSealedSequence: 123, SealedAt: 1_700_000_000_000_000_000}

	err := Write(tempDir, cp)
	require.NoError(t, err, "Write should succeed")

	checkpointPath := filepath.Join(tempDir, FileName)
	tempPath := filepath.Join(tempDir, TempFileName)
	_, err = os.Stat(checkpointPath)
	require.NoError(t, err, "CHECKPOINT file should exist after write")
	_, err = os.Stat(tempPath)
	require.True(t, os.IsNotExist(err), "CHECKPOINT.tmp file should not exist after successful write")

	readCp, found, err := Read(tempDir)
	require.NoError(t, err, "Read should succeed")
	require.True(t, found, "Checkpoint should be found")
	assert.Equal(t, cp, readCp)
}

func TestCheckpoint_Read_NonExistent(t *testing.T) {
	cp, found, err := Read(t.TempDir())
	require.NoError(t, err, "Read from an empty directory should not return an error")
	assert.False(t, found, "found should be false for a non-existent checkpoint")
	assert.Equal(t, Checkpoint{}, cp)
}

func TestCheckpoint_Write_Overwrite(t *testing.T) {
	tempDir := t.TempDir()

	require.NoError(t, Write(tempDir, Checkpoint{LastSealedSequence: 10}))
	cp2 := Checkpoint{LastSealedSequence: 20, SealedAt: 42}
	require.NoError(t, Write(tempDir, cp2))

	readCp, found, err := Read(tempDir)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, cp2, readCp, "Read value should be from the second write")
}

func TestCheckpoint_Read_Corrupted(t *testing.T) {
	tempDir := t.TempDir()
	checkpointPath := filepath.Join(tempDir, FileName)

	t.Run("BadMagicNumber", func(t *testing.T) {
		badData := make([]byte, 20)
		binary.LittleEndian.PutUint32(badData, 0xDEADBEEF)
		require.NoError(t, os.WriteFile(checkpointPath, badData, 0644))

		_, found, err := Read(tempDir)
		require.Error(t, err, "Read should fail with a bad magic number")
		assert.True(t, found, "found should be true as the file exists")
		assert.Contains(t, err.Error(), "invalid checkpoint magic number")
	})

	t.Run("TruncatedFile", func(t *testing.T) {
		truncatedData := binary.LittleEndian.AppendUint32(nil, MagicNumber)
		truncatedData = append(truncatedData, 0x01, 0x00)
		require.NoError(t, os.WriteFile(checkpointPath, truncatedData, 0644))

		_, found, err := Read(tempDir)
		require.Error(t, err, "Read should fail with a truncated file")
		assert.True(t, found)
	})

	t.Run("TrailingBytes", func(t *testing.T) {
		require.NoError(t, Write(tempDir, Checkpoint{LastSealedSequence: 1}))
		data, err := os.ReadFile(checkpointPath)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(checkpointPath, append(data, 0xFF), 0644))

		_, found, err := Read(tempDir)
		require.Error(t, err)
		assert.True(t, found)
	})
}

func TestCheckpoint_Write_AtomicitySimulation(t *testing.T) {
	tempDir := t.TempDir()
	tempPath := filepath.Join(tempDir, TempFileName)

	oldCp := Checkpoint{LastSealedSequence: 99}
	require.NoError(t, Write(tempDir, oldCp))

	// A crash after the .tmp file was written but before the rename.
	file, err := os.Create(tempPath)
	require.NoError(t, err)
	require.NoError(t, binary.Write(file, binary.LittleEndian, MagicNumber))
	require.NoError(t, binary.Write(file, binary.LittleEndian, Checkpoint{LastSealedSequence: 199}))
	require.NoError(t, file.Close())

	readCp, found, err := Read(tempDir)
	require.NoError(t, err, "Read should succeed even with a dangling .tmp file")
	require.True(t, found)
	assert.Equal(t, oldCp, readCp, "Should read the value from the old checkpoint")
}

func TestCheckpoint_Write_RenameFailure(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, Write(tempDir, Checkpoint{LastSealedSequence: 5}))

	injected := errors.New("injected rename failure")
	orig := sys.Rename
	sys.Rename = func(oldpath, newpath string) error { return injected }
	defer func() { sys.Rename = orig }()

	err := Write(tempDir, Checkpoint{LastSealedSequence: 6})
	require.ErrorIs(t, err, injected)

	sys.Rename = orig
	readCp, found, err := Read(tempDir)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(5), readCp.LastSealedSequence)
}

func TestCheckpoint_Read_OpenFailure(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, Write(tempDir, Checkpoint{LastSealedSequence: 5}))

	injected := errors.New("injected open failure")
	orig := sys.OpenFile
	sys.OpenFile = func(name string, flag int, perm os.FileMode) (sys.FileHandle, error) { return nil, injected }
	defer func() { sys.OpenFile = orig }()

	_, found, err := Read(tempDir)
	require.ErrorIs(t, err, injected)
	assert.False(t, found)
}
