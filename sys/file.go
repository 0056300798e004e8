// Package sys is the filesystem layer used by the WAL. The package-level
// handlers can be swapped, which tests use to inject I/O failures.
package sys

import (
	"fmt"
	"io"
	"os"
)

// FileHandle is the subset of *os.File the WAL needs.
type FileHandle interface {
	io.ReadWriteCloser
	Stat() (os.FileInfo, error)
	Sync() error
	Name() string
}

type OpenFileHandler func(name string, flag int, perm os.FileMode) (FileHandle, error)
type ReadFileHandler func(name string) ([]byte, error)
type ReadDirHandler func(name string) ([]os.DirEntry, error)
type RenameHandler func(oldpath, newpath string) error
type RemoveHandler func(name string) error

var OpenFile OpenFileHandler = func(name string, flag int, perm os.FileMode) (FileHandle, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

var ReadFile ReadFileHandler = os.ReadFile

var ReadDir ReadDirHandler = os.ReadDir

var Rename RenameHandler = os.Rename

var Remove RemoveHandler = os.Remove

// Open opens the named file for reading.
func Open(name string) (FileHandle, error) {
	return OpenFile(name, os.O_RDONLY, 0)
}

// WriteFileAtomic replaces path with data. The data is written to tmpPath,
// optionally flushed with SyncData, closed, then renamed over path, so path
// always holds either the previous or the new content. tmpPath is removed
// if any step fails.
func WriteFileAtomic(path, tmpPath string, data []byte, perm os.FileMode, syncData bool) (err error) {
	file, err := OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file %s: %w", tmpPath, err)
	}
	defer func() {
		if err != nil {
			_ = Remove(tmpPath)
		}
	}()

	if _, err = file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to write temp file %s: %w", tmpPath, err)
	}
	if syncData {
		if err = SyncData(file); err != nil {
			file.Close()
			return fmt.Errorf("failed to sync temp file %s: %w", tmpPath, err)
		}
	}
	// Close before rename; some platforms refuse to rename open files.
	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close temp file %s: %w", tmpPath, err)
	}
	if err = Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
