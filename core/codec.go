package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

// Entry flags.
const (
	flagHasPayload uint8 = 1 << 0

	knownFlags = flagHasPayload
)

const (
	checksumSize = 4
	// kind + flags + timestamp + one byte of uvarint transaction id.
	minEntryWireSize = 1 + 1 + 8 + 1
)

// EncodeEntry serializes a single entry into w.
// Format: kind (1) | flags (1) | timestamp bits (8) | txid (uvarint) | [payload len (uvarint) | payload]
func EncodeEntry(w io.Writer, e *Entry) error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidEntryKind, byte(e.Kind))
	}
	var flags uint8
	if e.HasPayload() {
		flags |= flagHasPayload
	}

	var fixed [10]byte
	fixed[0] = byte(e.Kind)
	fixed[1] = flags
	binary.LittleEndian.PutUint64(fixed[2:], math.Float64bits(e.Timestamp))
	if _, err := w.Write(fixed[:]); err != nil {
		return err
	}

	varBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(varBuf, e.TransactionID)
	if _, err := w.Write(varBuf[:n]); err != nil {
		return err
	}
	if !e.HasPayload() {
		return nil
	}

	n = binary.PutUvarint(varBuf, uint64(len(e.Payload)))
	if _, err := w.Write(varBuf[:n]); err != nil {
		return err
	}
	_, err := w.Write(e.Payload)
	return err
}

// DecodeEntry deserializes a single entry from r. All failures wrap ErrCorruptSegment.
func DecodeEntry(r *bytes.Reader) (Entry, error) {
	var e Entry

	kind, err := r.ReadByte()
	if err != nil {
		return e, fmt.Errorf("%w: failed to read entry kind: %w", ErrCorruptSegment, err)
	}
	e.Kind = EntryKind(kind)
	if !e.Kind.Valid() {
		return e, fmt.Errorf("%w: %w: %d", ErrCorruptSegment, ErrInvalidEntryKind, kind)
	}

	flags, err := r.ReadByte()
	if err != nil {
		return e, fmt.Errorf("%w: failed to read entry flags: %w", ErrCorruptSegment, err)
	}
	if flags&^knownFlags != 0 {
		return e, fmt.Errorf("%w: unknown entry flags %#x", ErrCorruptSegment, flags)
	}

	var bits uint64
	if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
		return e, fmt.Errorf("%w: failed to read timestamp: %w", ErrCorruptSegment, err)
	}
	e.Timestamp = math.Float64frombits(bits)

	e.TransactionID, err = binary.ReadUvarint(r)
	if err != nil {
		return e, fmt.Errorf("%w: failed to read transaction id: %w", ErrCorruptSegment, err)
	}

	if flags&flagHasPayload == 0 {
		return e, nil
	}
	payloadLen, err := binary.ReadUvarint(r)
	if err != nil {
		return e, fmt.Errorf("%w: failed to read payload length: %w", ErrCorruptSegment, err)
	}
	if payloadLen > uint64(r.Len()) {
		return e, fmt.Errorf("%w: payload length %d exceeds remaining %d bytes", ErrCorruptSegment, payloadLen, r.Len())
	}
	e.Payload = make([]byte, payloadLen)
	if _, err := io.ReadFull(r, e.Payload); err != nil {
		return e, fmt.Errorf("%w: failed to read payload: %w", ErrCorruptSegment, err)
	}
	return e, nil
}

// EncodeEntries serializes an ordered sequence of entries as one segment container.
// Format: header | count (uvarint) | entries | crc32 of everything before it (4)
func EncodeEntries(entries []Entry) ([]byte, error) {
	buf := SegmentBufferPool.Get()
	defer SegmentBufferPool.Put(buf)

	header := NewFileHeader(SegmentMagicNumber)
	if err := binary.Write(buf, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to write segment header: %w", err)
	}

	countBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(countBuf, uint64(len(entries)))
	buf.Write(countBuf[:n])

	for i := range entries {
		if err := EncodeEntry(buf, &entries[i]); err != nil {
			return nil, fmt.Errorf("failed to encode entry %d: %w", i, err)
		}
	}

	checksum := crc32.ChecksumIEEE(buf.Bytes())
	if err := binary.Write(buf, binary.LittleEndian, checksum); err != nil {
		return nil, fmt.Errorf("failed to write segment checksum: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

// DecodeEntries parses a segment container produced by EncodeEntries.
// It never truncates silently: any malformed input yields an error wrapping
// ErrCorruptSegment.
func DecodeEntries(data []byte) ([]Entry, error) {
	var header FileHeader
	headerSize := header.Size()
	if len(data) < headerSize+1+checksumSize {
		return nil, fmt.Errorf("%w: segment too short (%d bytes)", ErrCorruptSegment, len(data))
	}

	body := data[:len(data)-checksumSize]
	want := binary.LittleEndian.Uint32(data[len(data)-checksumSize:])
	if got := crc32.ChecksumIEEE(body); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch: got %08x, want %08x", ErrCorruptSegment, got, want)
	}

	r := bytes.NewReader(body)
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: failed to read segment header: %w", ErrCorruptSegment, err)
	}
	if header.Magic != SegmentMagicNumber {
		return nil, fmt.Errorf("%w: invalid magic number: got %x, want %x", ErrCorruptSegment, header.Magic, SegmentMagicNumber)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorruptSegment, header.Version)
	}
	if header.Flags != 0 {
		return nil, fmt.Errorf("%w: unknown header flags %#x", ErrCorruptSegment, header.Flags)
	}

	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read entry count: %w", ErrCorruptSegment, err)
	}
	if count > uint64(r.Len()/minEntryWireSize) {
		return nil, fmt.Errorf("%w: entry count %d does not fit in %d bytes", ErrCorruptSegment, count, r.Len())
	}

	entries := make([]Entry, 0, count)
	for i := uint64(0); i < count; i++ {
		e, err := DecodeEntry(r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d entries", ErrCorruptSegment, r.Len(), count)
	}
	return entries, nil
}
