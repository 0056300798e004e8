package wal

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/INLOpen/nexuswal/core"
	"github.com/INLOpen/nexuswal/sys"
)

// SegmentInfo describes one segment file on disk.
type SegmentInfo struct {
	Sequence uint64
	Path     string
	Size     int64
}

// dirScan is the result of listing a WAL directory.
type dirScan struct {
	// segments is sorted by ascending sequence.
	segments []SegmentInfo
	// staleTemps holds leftovers of interrupted rewrites.
	staleTemps []string
	// ignored holds .log files that are not canonical segment names.
	ignored []string
}

func segmentPath(dir string, sequence uint64) string {
	return filepath.Join(dir, core.FormatSegmentFileName(sequence))
}

// scanDir lists dir and classifies its entries. Directory order is never
// trusted; segments are ordered by their parsed sequence number.
func scanDir(dir string) (dirScan, error) {
	var scan dirScan
	files, err := sys.ReadDir(dir)
	if err != nil {
		return scan, fmt.Errorf("failed to read WAL directory %s: %w", dir, err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()

		if base, ok := strings.CutSuffix(name, core.TempFileSuffix); ok {
			if _, err := core.ParseSegmentFileName(base); err == nil || base == core.CheckpointFileName {
				scan.staleTemps = append(scan.staleTemps, filepath.Join(dir, name))
			}
			continue
		}

		if !strings.HasSuffix(name, core.SegmentFileExt) {
			continue
		}
		seq, err := core.ParseSegmentFileName(name)
		if err != nil {
			scan.ignored = append(scan.ignored, name)
			continue
		}
		info, err := file.Info()
		if err != nil {
			return scan, fmt.Errorf("failed to stat segment %s: %w", name, err)
		}
		scan.segments = append(scan.segments, SegmentInfo{
			Sequence: seq,
			Path:     filepath.Join(dir, name),
			Size:     info.Size(),
		})
	}

	sort.Slice(scan.segments, func(i, j int) bool {
		return scan.segments[i].Sequence < scan.segments[j].Sequence
	})
	return scan, nil
}

// writeSegment replaces the segment file for sequence with the serialization
// of entries and returns the number of bytes written.
func writeSegment(dir string, sequence uint64, entries []core.Entry, syncData bool) (int, error) {
	data, err := core.EncodeEntries(entries)
	if err != nil {
		return 0, fmt.Errorf("failed to encode segment %d: %w", sequence, err)
	}
	path := segmentPath(dir, sequence)
	if err := sys.WriteFileAtomic(path, core.FormatTempFilename(path), data, 0644, syncData); err != nil {
		return 0, err
	}
	return len(data), nil
}
