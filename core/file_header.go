package core

import "encoding/binary"

// FileHeader is the fixed header at the start of every segment container.
type FileHeader struct {
	Magic   uint32
	Version uint8
	Flags   uint8 // reserved, must be zero
}

// Size returns the encoded size of the header in bytes.
func (h *FileHeader) Size() int {
	return binary.Size(h)
}

// NewFileHeader creates a header for the current format version.
func NewFileHeader(magic uint32) FileHeader {
	return FileHeader{
		Magic:   magic,
		Version: FormatVersion,
	}
}
