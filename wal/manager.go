// Package wal implements the write-ahead log manager. Entries are buffered in
// memory and the whole buffer is rewritten to the active segment file
// wal<sequence>.log on every append. A checkpoint appends a marker entry,
// seals the segment and moves on to the next sequence number.
package wal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/INLOpen/nexuswal/checkpoint"
	"github.com/INLOpen/nexuswal/clock"
	"github.com/INLOpen/nexuswal/core"
	"github.com/INLOpen/nexuswal/hooks"
	"github.com/INLOpen/nexuswal/sys"
)

// LogManager is the public surface of Manager.
type LogManager interface {
	// AppendLog buffers entry and rewrites the active segment.
	AppendLog(entry core.Entry) error
	// Checkpoint seals the active segment and advances the sequence.
	Checkpoint() error
	// Purge deletes sealed segments with a sequence <= upToSequence.
	Purge(upToSequence uint64) (int, error)
	Sequence() uint64
	Buffered() []core.Entry
	Close() error
}

var _ LogManager = (*Manager)(nil)

// Manager owns the in-memory buffer of the active segment. A single mutex
// guards the buffer, the sequence number and the segment file together.
type Manager struct {
	mu sync.Mutex

	dir      string
	pageSize int
	syncMode SyncMode

	sequence      uint64
	buffer        []core.Entry
	bufferedBytes int

	clock       clock.Clock
	logger      *slog.Logger
	hookManager hooks.HookManager
	tracer      trace.Tracer
	metrics     *Metrics

	discardRecovered bool
	releaseLock      func() error
	closed           bool
}

// Open validates opts, creates the directory if needed and runs the recovery
// scan. The returned manager resumes at the sequence the scan determined.
func Open(opts Options) (*Manager, error) {
	if err := opts.applyDefaults(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory %s: %w", opts.Dir, err)
	}

	m := &Manager{
		dir:              opts.Dir,
		pageSize:         opts.PageSize,
		syncMode:         opts.SyncMode,
		clock:            opts.Clock,
		logger:           opts.Logger,
		hookManager:      opts.HookManager,
		tracer:           opts.Tracer,
		metrics:          opts.Metrics,
		discardRecovered: opts.DiscardRecoveredEntries,
	}

	if opts.ExclusiveLock {
		lockPath := filepath.Join(opts.Dir, core.LockFileName)
		release, err := sys.AcquireFileLock(lockPath, opts.LockTimeout)
		switch {
		case errors.Is(err, sys.ErrLockNotSupported):
			m.logger.Warn("Exclusive WAL lock not supported on this platform, continuing without it", "path", lockPath)
		case err != nil:
			return nil, fmt.Errorf("failed to lock WAL directory %s: %w", opts.Dir, err)
		default:
			m.releaseLock = release
		}
	}

	if err := m.recover(); err != nil {
		m.unlockDir()
		return nil, fmt.Errorf("wal recovery failed: %w", err)
	}
	return m, nil
}

// AppendLog appends entry to the active segment. When the bytes already
// buffered exceed the page size, the segment is sealed first, so a segment
// may overshoot the page size by up to one entry.
func (m *Manager) AppendLog(entry core.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := m.tracer.Start(context.Background(), "WAL.AppendLog")
	defer span.End()
	span.SetAttributes(
		attribute.String("wal.entry_kind", entry.Kind.String()),
		attribute.Int64("wal.sequence", int64(m.sequence)),
		attribute.Int("wal.buffered_bytes", m.bufferedBytes),
	)

	if m.closed {
		m.metrics.recordAppendError(reasonClosed)
		return ErrClosed
	}
	if !entry.Kind.Valid() {
		m.metrics.recordAppendError(reasonInvalidKind)
		err := fmt.Errorf("%w: %d", core.ErrInvalidEntryKind, byte(entry.Kind))
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_entry_kind")
		return err
	}
	// The buffered copy must not alias caller memory.
	entry.Payload = bytes.Clone(entry.Payload)

	// --- Pre-WAL-Append Hook ---
	if m.hookManager != nil {
		payload := hooks.WALAppendPayload{Entry: &entry, Sequence: m.sequence}
		if err := m.hookManager.Trigger(ctx, hooks.NewPreWALAppendEvent(payload)); err != nil {
			m.metrics.recordAppendError(reasonHookRejected)
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancelled_by_pre_hook")
			return fmt.Errorf("append cancelled by pre-hook: %w", err)
		}
		if !entry.Kind.Valid() {
			m.metrics.recordAppendError(reasonInvalidKind)
			return fmt.Errorf("%w: %d set by pre-hook", core.ErrInvalidEntryKind, byte(entry.Kind))
		}
	}

	rotated := false
	if m.bufferedBytes > m.pageSize {
		m.logger.Debug("Page size exceeded, sealing segment before append", "sequence", m.sequence, "buffered_bytes", m.bufferedBytes, "page_size", m.pageSize)
		if err := m.checkpointLocked(ctx); err != nil {
			m.metrics.recordAppendError(reasonRotate)
			span.RecordError(err)
			span.SetStatus(codes.Error, "rotate_failed")
			m.triggerPostAppend(ctx, entry, 0, false, err)
			return fmt.Errorf("failed to rotate segment before append: %w", err)
		}
		rotated = true
	}

	n, err := m.appendAndWriteLocked(entry)
	if err != nil {
		m.metrics.recordAppendError(reasonWrite)
		span.RecordError(err)
		span.SetStatus(codes.Error, "segment_write_failed")
		m.triggerPostAppend(ctx, entry, 0, rotated, err)
		return err
	}

	m.metrics.recordAppend()
	span.SetAttributes(attribute.Bool("wal.rotated", rotated), attribute.Int("wal.segment_bytes", n))
	m.triggerPostAppend(ctx, entry, n, rotated, nil)
	return nil
}

// Checkpoint writes a checkpoint marker as the last entry of the active
// segment, clears the buffer and advances the sequence. If the marker cannot
// be written, neither the buffer nor the sequence change.
func (m *Manager) Checkpoint() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	ctx, span := m.tracer.Start(context.Background(), "WAL.Checkpoint")
	defer span.End()

	if err := m.checkpointLocked(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkpoint_failed")
		return err
	}
	return nil
}

// checkpointLocked seals the active segment. Must be called with the lock held.
func (m *Manager) checkpointLocked(ctx context.Context) error {
	_, span := m.tracer.Start(ctx, "WAL.checkpointLocked")
	defer span.End()

	if m.sequence == math.MaxUint64 {
		return fmt.Errorf("%w: cannot seal segment %d", ErrSequenceExhausted, m.sequence)
	}
	marker := core.NewEntry(core.EntryKindCheckpoint, nil, 0, clock.UnixSeconds(m.clock))
	if _, err := m.appendAndWriteLocked(marker); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to write checkpoint marker: %w", err)
	}

	sealedSequence := m.sequence
	sealedEntries := len(m.buffer)
	sealedPath := segmentPath(m.dir, sealedSequence)

	m.buffer = nil
	m.bufferedBytes = 0
	m.sequence++

	span.SetAttributes(
		attribute.Int64("wal.sealed_sequence", int64(sealedSequence)),
		attribute.Int("wal.sealed_entries", sealedEntries),
	)
	m.metrics.recordCheckpoint()
	m.metrics.setBuffer(0, 0)
	m.metrics.setSequence(m.sequence)
	m.logger.Info("Sealed WAL segment", "sequence", sealedSequence, "entries", sealedEntries, "next_sequence", m.sequence)

	cp := checkpoint.Checkpoint{
		LastSealedSequence: sealedSequence,
		SealedAt:           int64(marker.Timestamp * float64(time.Second)),
	}
	if err := checkpoint.Write(m.dir, cp); err != nil {
		m.logger.Warn("Failed to update checkpoint file", "sequence", sealedSequence, "error", err)
	}

	// --- Post-WAL-Checkpoint Hook ---
	if m.hookManager != nil {
		payload := hooks.PostWALCheckpointPayload{
			SealedSequence: sealedSequence,
			NewSequence:    m.sequence,
			SealedPath:     sealedPath,
			SealedEntries:  sealedEntries,
		}
		m.hookManager.Trigger(ctx, hooks.NewPostWALCheckpointEvent(payload))
	}
	return nil
}

// appendAndWriteLocked adds entry to the buffer and rewrites the active
// segment. On failure the entry is taken back out, so the buffer always
// matches the file on disk.
func (m *Manager) appendAndWriteLocked(entry core.Entry) (int, error) {
	m.buffer = append(m.buffer, entry)

	start := time.Now()
	n, err := writeSegment(m.dir, m.sequence, m.buffer, m.syncMode == SyncAlways)
	if err != nil {
		m.buffer[len(m.buffer)-1] = core.Entry{}
		m.buffer = m.buffer[:len(m.buffer)-1]
		m.logger.Error("Failed to write WAL segment", "sequence", m.sequence, "error", err)
		return 0, err
	}

	m.bufferedBytes += entry.EncodedSize()
	m.metrics.recordSegmentWrite(n, time.Since(start))
	m.metrics.setBuffer(len(m.buffer), m.bufferedBytes)
	return n, nil
}

func (m *Manager) triggerPostAppend(ctx context.Context, entry core.Entry, n int, rotated bool, err error) {
	if m.hookManager == nil {
		return
	}
	payload := hooks.PostWALAppendPayload{
		Entry:        entry,
		Sequence:     m.sequence,
		Rotated:      rotated,
		BytesWritten: n,
		Error:        err,
	}
	m.hookManager.Trigger(ctx, hooks.NewPostWALAppendEvent(payload))
}

// Purge deletes sealed segment files with a sequence less than or equal to
// upToSequence and returns how many were removed. The active segment is never
// deleted. Removal failures are logged and returned together; the remaining
// files are still attempted.
func (m *Manager) Purge(upToSequence uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	ctx, span := m.tracer.Start(context.Background(), "WAL.Purge")
	defer span.End()
	span.SetAttributes(attribute.Int64("wal.purge_up_to", int64(upToSequence)))

	scan, err := scanDir(m.dir)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	var removed []string
	var errs []error
	for _, seg := range scan.segments {
		if seg.Sequence > upToSequence {
			break
		}
		if seg.Sequence >= m.sequence {
			m.logger.Warn("Skipping purge of active WAL segment", "sequence", seg.Sequence)
			continue
		}
		if err := sys.Remove(seg.Path); err != nil {
			m.logger.Error("Failed to purge WAL segment", "path", seg.Path, "error", err)
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", seg.Path, err))
			continue
		}
		removed = append(removed, seg.Path)
	}

	if len(removed) > 0 {
		m.metrics.recordPurged(len(removed))
		m.logger.Info("Purged WAL segments", "count", len(removed), "up_to_sequence", upToSequence)
	}
	span.SetAttributes(attribute.Int("wal.purged", len(removed)))

	// --- Post-WAL-Purge Hook ---
	if m.hookManager != nil && len(removed) > 0 {
		payload := hooks.PostWALPurgePayload{UpToSequence: upToSequence, Removed: removed}
		m.hookManager.Trigger(ctx, hooks.NewPostWALPurgeEvent(payload))
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "purge_incomplete")
		return len(removed), err
	}
	return len(removed), nil
}

// Close marks the manager closed and releases the directory lock. The
// segment file is already complete after every write, so nothing is flushed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	err := m.unlockDir()
	m.logger.Info("WAL manager closed.", "sequence", m.sequence, "buffered_entries", len(m.buffer))
	return err
}

func (m *Manager) unlockDir() error {
	if m.releaseLock == nil {
		return nil
	}
	err := m.releaseLock()
	m.releaseLock = nil
	if err != nil {
		return fmt.Errorf("failed to release WAL directory lock: %w", err)
	}
	return nil
}

// Sequence returns the sequence number of the active segment.
func (m *Manager) Sequence() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sequence
}

func (m *Manager) PageSize() int {
	return m.pageSize
}

func (m *Manager) Dir() string {
	return m.dir
}

// Buffered returns a deep copy of the entries in the active segment buffer.
func (m *Manager) Buffered() []core.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Entry, len(m.buffer))
	for i := range m.buffer {
		out[i] = m.buffer[i]
		out[i].Payload = bytes.Clone(m.buffer[i].Payload)
	}
	return out
}

// BufferedBytes returns the summed EncodedSize of the buffered entries.
func (m *Manager) BufferedBytes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bufferedBytes
}

// ActiveSegmentPath returns the path of wal<sequence>.log. The file does not
// exist until the first append after a checkpoint.
func (m *Manager) ActiveSegmentPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return segmentPath(m.dir, m.sequence)
}

// CurrentSecs returns the manager clock as fractional seconds since the epoch.
func (m *Manager) CurrentSecs() float64 {
	return clock.UnixSeconds(m.clock)
}
