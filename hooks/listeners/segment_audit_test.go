package listeners

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/INLOpen/nexuswal/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentAuditListener_OnEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	listener := NewSegmentAuditListener(logger)

	err := listener.OnEvent(context.Background(), hooks.NewPostWALCheckpointEvent(hooks.PostWALCheckpointPayload{
		SealedSequence: 3,
		NewSequence:    4,
		SealedPath:     "/data/wal3.log",
		SealedEntries:  5,
	}))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Segment sealed")
	assert.Contains(t, buf.String(), "sequence=3")
	assert.Contains(t, buf.String(), "component=SegmentAuditListener")

	buf.Reset()
	err = listener.OnEvent(context.Background(), hooks.NewPostWALPurgeEvent(hooks.PostWALPurgePayload{
		UpToSequence: 2,
		Removed:      []string{"wal1.log", "wal2.log"},
	}))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "removed=2")

	assert.True(t, listener.IsAsync())
}
