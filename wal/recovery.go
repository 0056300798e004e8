package wal

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/INLOpen/nexuswal/checkpoint"
	"github.com/INLOpen/nexuswal/core"
	"github.com/INLOpen/nexuswal/hooks"
	"github.com/INLOpen/nexuswal/sys"
)

// recover determines the active sequence and buffer from the segment files in
// m.dir. The newest segment is the one with the highest sequence number. If
// its last entry is a checkpoint marker it is sealed and the manager starts
// on the next sequence; otherwise the manager resumes writing into it.
func (m *Manager) recover() error {
	start := time.Now()
	ctx, span := m.tracer.Start(context.Background(), "WAL.recover")
	defer span.End()

	scan, err := scanDir(m.dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan_failed")
		return err
	}

	for _, tmp := range scan.staleTemps {
		if err := sys.Remove(tmp); err != nil {
			m.logger.Warn("Failed to remove stale temp file", "path", tmp, "error", err)
		} else {
			m.logger.Info("Removed stale temp file from interrupted write", "path", tmp)
		}
	}
	for _, name := range scan.ignored {
		m.logger.Debug("Ignoring non-segment .log file", "name", name)
	}

	m.sequence = 1
	var recovered []core.Entry
	sealed := false

	if n := len(scan.segments); n > 0 {
		last := scan.segments[n-1]
		entries, err := ReadSegment(last.Path)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode_failed")
			return err
		}

		m.sequence = last.Sequence
		if k := len(entries); k > 0 && entries[k-1].Kind == core.EntryKindCheckpoint {
			sealed = true
			if last.Sequence == math.MaxUint64 {
				span.SetStatus(codes.Error, "sequence_exhausted")
				return fmt.Errorf("%w: segment %s is sealed", ErrSequenceExhausted, last.Path)
			}
			m.sequence = last.Sequence + 1
		} else {
			recovered = entries
		}
	}

	if err := m.reconcileCheckpointFile(len(scan.segments) > 0); err != nil {
		span.RecordError(err)
		return err
	}

	if len(recovered) > 0 && m.discardRecovered {
		m.logger.Warn("Discarding entries recovered from unsealed segment", "sequence", m.sequence, "entries", len(recovered))
		recovered = nil
	}
	m.buffer = recovered
	m.bufferedBytes = core.TotalEncodedSize(recovered)

	elapsed := time.Since(start)
	m.metrics.setSequence(m.sequence)
	m.metrics.setBuffer(len(m.buffer), m.bufferedBytes)
	m.metrics.setRecovered(len(m.buffer))
	span.SetAttributes(
		attribute.Int("wal.segments_found", len(scan.segments)),
		attribute.Int64("wal.sequence", int64(m.sequence)),
		attribute.Int("wal.recovered_entries", len(m.buffer)),
		attribute.Bool("wal.last_segment_sealed", sealed),
	)
	m.logger.Info("WAL recovery finished",
		"dir", m.dir,
		"segments", len(scan.segments),
		"sequence", m.sequence,
		"sealed", sealed,
		"recovered_entries", len(m.buffer),
		"duration", elapsed,
	)

	// --- Post-WAL-Recovery Hook ---
	if m.hookManager != nil {
		payload := hooks.PostWALRecoveryPayload{
			Sequence:         m.sequence,
			RecoveredEntries: len(m.buffer),
			Sealed:           sealed,
			Duration:         elapsed,
		}
		m.hookManager.Trigger(ctx, hooks.NewPostWALRecoveryEvent(payload))
	}
	return nil
}

// reconcileCheckpointFile compares the CHECKPOINT file with the sequence
// derived from the segments. With no segments left (all purged) the file is
// the only record of how far the log got, and the sequence resumes after it.
// When segments exist they win and a disagreement is only logged.
func (m *Manager) reconcileCheckpointFile(haveSegments bool) error {
	cp, found, err := checkpoint.Read(m.dir)
	if err != nil {
		m.logger.Warn("Ignoring unreadable checkpoint file", "error", err)
		return nil
	}
	if !found || cp.LastSealedSequence < m.sequence {
		return nil
	}
	if !haveSegments {
		if cp.LastSealedSequence == math.MaxUint64 {
			return fmt.Errorf("%w: checkpoint file records the last sequence as sealed", ErrSequenceExhausted)
		}
		m.logger.Info("No segments on disk, resuming after checkpoint file", "last_sealed_sequence", cp.LastSealedSequence)
		m.sequence = cp.LastSealedSequence + 1
		return nil
	}
	m.logger.Warn("Checkpoint file is ahead of the segments on disk",
		"last_sealed_sequence", cp.LastSealedSequence,
		"sequence", m.sequence,
	)
	return nil
}

// ReadSegment decodes every entry of the segment file at path.
func ReadSegment(path string) ([]core.Entry, error) {
	data, err := sys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read segment %s: %w", path, err)
	}
	entries, err := core.DecodeEntries(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode segment %s: %w", path, err)
	}
	return entries, nil
}
