package wal

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/INLOpen/nexuswal/core"
)

// SegmentContents is one decoded segment.
type SegmentContents struct {
	SegmentInfo
	Entries []core.Entry
	// Sealed reports whether the last entry is a checkpoint marker.
	Sealed bool
}

// ListSegments returns the segment files in dir ordered by sequence.
// It does not need, or take, the directory lock.
func ListSegments(dir string) ([]SegmentInfo, error) {
	scan, err := scanDir(dir)
	if err != nil {
		return nil, err
	}
	return scan.segments, nil
}

// ReadAll decodes every segment in dir concurrently and returns them ordered
// by sequence. The first failure cancels the remaining reads.
func ReadAll(ctx context.Context, dir string) ([]SegmentContents, error) {
	segments, err := ListSegments(dir)
	if err != nil {
		return nil, err
	}

	out := make([]SegmentContents, len(segments))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, seg := range segments {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries, err := ReadSegment(seg.Path)
			if err != nil {
				return err
			}
			out[i] = SegmentContents{
				SegmentInfo: seg,
				Entries:     entries,
				Sealed:      len(entries) > 0 && entries[len(entries)-1].Kind == core.EntryKindCheckpoint,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
