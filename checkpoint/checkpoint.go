// Package checkpoint maintains the CHECKPOINT file, a small marker recording
// the last segment sequence sealed by a checkpoint entry.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/INLOpen/nexuswal/core"
	"github.com/INLOpen/nexuswal/sys"
)

const (
	FileName     = core.CheckpointFileName
	TempFileName = FileName + core.TempFileSuffix
	MagicNumber  = core.CheckpointMagicNumber
)

// Checkpoint is the content of the CHECKPOINT file.
type Checkpoint struct {
	LastSealedSequence uint64
	// SealedAt is the checkpoint entry timestamp in Unix nanoseconds.
	SealedAt int64
}

// Write atomically replaces the CHECKPOINT file in dir. The data goes to a
// temporary file which is fsynced, closed and renamed over the final name.
func Write(dir string, cp Checkpoint) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, MagicNumber); err != nil {
		return fmt.Errorf("failed to encode checkpoint magic number: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, cp); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	finalPath := filepath.Join(dir, FileName)
	tempPath := filepath.Join(dir, TempFileName)
	if err := sys.WriteFileAtomic(finalPath, tempPath, buf.Bytes(), 0644, true); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	return nil
}

// Read reads the CHECKPOINT file from dir. found is false, with a nil error,
// when no checkpoint has been written yet.
func Read(dir string) (cp Checkpoint, found bool, err error) {
	file, err := sys.Open(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Checkpoint{}, true, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	r := bytes.NewReader(data)
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return Checkpoint{}, true, fmt.Errorf("failed to read checkpoint magic number: %w", err)
	}
	if magic != MagicNumber {
		return Checkpoint{}, true, fmt.Errorf("invalid checkpoint magic number: got %x, want %x", magic, MagicNumber)
	}
	if err := binary.Read(r, binary.LittleEndian, &cp); err != nil {
		return Checkpoint{}, true, fmt.Errorf("failed to read checkpoint body: %w", err)
	}
	if r.Len() != 0 {
		return Checkpoint{}, true, fmt.Errorf("checkpoint file has %d trailing bytes", r.Len())
	}
	return cp, true, nil
}
