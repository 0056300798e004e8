package sys

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "segment.log")
	tmpPath := path + ".tmp"

	t.Run("CreatesAndReplaces", func(t *testing.T) {
		require.NoError(t, WriteFileAtomic(path, tmpPath, []byte("first"), 0644, true))
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), got)

		require.NoError(t, WriteFileAtomic(path, tmpPath, []byte("second, longer"), 0644, false))
		got, err = os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("second, longer"), got)

		_, err = os.Stat(tmpPath)
		assert.True(t, os.IsNotExist(err), "temp file should not survive a successful write")
	})

	t.Run("RenameFailureKeepsOldContent", func(t *testing.T) {
		injected := errors.New("injected rename failure")
		orig := Rename
		Rename = func(oldpath, newpath string) error { return injected }
		defer func() { Rename = orig }()

		err := WriteFileAtomic(path, tmpPath, []byte("third"), 0644, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, injected)

		got, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, []byte("second, longer"), got)

		_, statErr := os.Stat(tmpPath)
		assert.True(t, os.IsNotExist(statErr), "temp file should be removed after a failed write")
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		missing := filepath.Join(tempDir, "nope", "x.log")
		err := WriteFileAtomic(missing, missing+".tmp", []byte("x"), 0644, false)
		require.Error(t, err)
	})
}

func TestSyncData(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "data"), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("payload"))
	require.NoError(t, err)
	assert.NoError(t, SyncData(f))
}

func TestOpen_ReadsThroughHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0644))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	injected := errors.New("open denied")
	orig := OpenFile
	OpenFile = func(name string, flag int, perm os.FileMode) (FileHandle, error) { return nil, injected }
	defer func() { OpenFile = orig }()
	_, err = Open(path)
	assert.ErrorIs(t, err, injected)
}
