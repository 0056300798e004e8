package listeners

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/INLOpen/nexuswal/hooks"
)

// SegmentAuditListener logs every segment that is sealed or purged.
type SegmentAuditListener struct {
	logger *slog.Logger
}

func NewSegmentAuditListener(logger *slog.Logger) *SegmentAuditListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SegmentAuditListener{
		logger: logger.With("component", "SegmentAuditListener"),
	}
}

// OnEvent handles PostWALCheckpoint and PostWALPurge events.
func (l *SegmentAuditListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	switch event.Type() {
	case hooks.EventPostWALCheckpoint:
		payload, ok := event.Payload().(hooks.PostWALCheckpointPayload)
		if !ok {
			return fmt.Errorf("unexpected payload type %T for %s", event.Payload(), event.Type())
		}
		l.logger.Info("Segment sealed",
			"sequence", payload.SealedSequence,
			"path", payload.SealedPath,
			"entries", payload.SealedEntries,
			"next_sequence", payload.NewSequence,
		)
	case hooks.EventPostWALPurge:
		payload, ok := event.Payload().(hooks.PostWALPurgePayload)
		if !ok {
			return fmt.Errorf("unexpected payload type %T for %s", event.Payload(), event.Type())
		}
		l.logger.Info("Segments purged",
			"up_to_sequence", payload.UpToSequence,
			"removed", len(payload.Removed),
		)
	}
	return nil
}

func (l *SegmentAuditListener) Priority() int { return 100 }

func (l *SegmentAuditListener) IsAsync() bool { return true }
