package listeners

import (
	"context"
	"expvar"
	"io"
	"log/slog"
	"sync"

	"github.com/INLOpen/nexuswal/hooks"
)

var (
	// expvar names are global, so registration happens once per process.
	wafMetricsOnce      sync.Once
	totalLogicalBytes   *expvar.Int
	totalSegmentBytes   *expvar.Int
	totalAppendsTracked *expvar.Int
)

func initWAFMetrics() {
	wafMetricsOnce.Do(func() {
		totalLogicalBytes = expvar.NewInt("wal_append_logical_bytes_total")
		totalSegmentBytes = expvar.NewInt("wal_append_segment_bytes_total")
		totalAppendsTracked = expvar.NewInt("wal_append_events_total")
		expvar.Publish("wal_append_waf", expvar.Func(func() interface{} {
			logical := totalLogicalBytes.Value()
			if logical == 0 {
				return 0.0
			}
			return float64(totalSegmentBytes.Value()) / float64(logical)
		}))
	})
}

// WriteAmplificationListener tracks how many bytes hit the disk per logical
// byte appended. Each append rewrites the whole active segment, so the ratio
// grows with the segment size.
type WriteAmplificationListener struct {
	logger *slog.Logger

	logicalBytes *expvar.Int
	segmentBytes *expvar.Int
	appends      *expvar.Int
}

func NewWriteAmplificationListener(logger *slog.Logger) *WriteAmplificationListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	initWAFMetrics()
	return &WriteAmplificationListener{
		logger:       logger.With("component", "WriteAmplificationListener"),
		logicalBytes: totalLogicalBytes,
		segmentBytes: totalSegmentBytes,
		appends:      totalAppendsTracked,
	}
}

// OnEvent is called for PostWALAppend events. Failed appends are skipped.
func (l *WriteAmplificationListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	payload, ok := event.Payload().(hooks.PostWALAppendPayload)
	if !ok || payload.Error != nil {
		return nil
	}

	logical := int64(payload.Entry.EncodedSize())
	l.logicalBytes.Add(logical)
	l.segmentBytes.Add(int64(payload.BytesWritten))
	l.appends.Add(1)

	l.logger.Debug("Append tracked",
		"sequence", payload.Sequence,
		"logical_bytes", logical,
		"segment_bytes", payload.BytesWritten,
	)
	return nil
}

func (l *WriteAmplificationListener) Priority() int { return 100 }

func (l *WriteAmplificationListener) IsAsync() bool { return true }
