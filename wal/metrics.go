package wal

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Append error reasons used as the "reason" label.
const (
	reasonClosed       = "closed"
	reasonInvalidKind  = "invalid_kind"
	reasonHookRejected = "hook_rejected"
	reasonRotate       = "rotate_failed"
	reasonWrite        = "write_failed"
)

// Metrics provides Prometheus metrics for a Manager.
// All methods are nil-safe: calls on a nil *Metrics are no-ops.
type Metrics struct {
	// AppendsTotal counts entries durably written by AppendLog.
	AppendsTotal prometheus.Counter

	// AppendErrorsTotal counts failed appends by reason.
	// Label values: "closed", "invalid_kind", "hook_rejected", "rotate_failed", "write_failed".
	AppendErrorsTotal *prometheus.CounterVec

	// CheckpointsTotal counts sealed segments, explicit and threshold-triggered.
	CheckpointsTotal prometheus.Counter

	// SegmentBytesWrittenTotal counts bytes of segment images written to disk.
	SegmentBytesWrittenTotal prometheus.Counter

	// SegmentWriteSeconds observes the latency of one full segment rewrite.
	SegmentWriteSeconds prometheus.Histogram

	BufferedBytes    prometheus.Gauge
	BufferedEntries  prometheus.Gauge
	ActiveSequence   prometheus.Gauge
	RecoveredEntries prometheus.Gauge

	// PurgedSegmentsTotal counts segment files removed by Purge.
	PurgedSegmentsTotal prometheus.Counter
}

// NewMetrics creates and registers WAL metrics with the given Prometheus
// registerer. If reg is nil, metrics are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AppendsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nexuswal",
			Subsystem: "wal",
			Name:      "appends_total",
			Help:      "Total number of entries appended to the WAL",
		}),
		AppendErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuswal",
			Subsystem: "wal",
			Name:      "append_errors_total",
			Help:      "Total number of failed appends by reason",
		}, []string{"reason"}),
		CheckpointsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nexuswal",
			Subsystem: "wal",
			Name:      "checkpoints_total",
			Help:      "Total number of segments sealed by a checkpoint",
		}),
		SegmentBytesWrittenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nexuswal",
			Subsystem: "wal",
			Name:      "segment_bytes_written_total",
			Help:      "Total bytes of segment images written to disk",
		}),
		SegmentWriteSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nexuswal",
			Subsystem: "wal",
			Name:      "segment_write_seconds",
			Help:      "Latency of rewriting the active segment file",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		BufferedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nexuswal",
			Subsystem: "wal",
			Name:      "buffered_bytes",
			Help:      "Encoded size of the entries in the active segment buffer",
		}),
		BufferedEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nexuswal",
			Subsystem: "wal",
			Name:      "buffered_entries",
			Help:      "Number of entries in the active segment buffer",
		}),
		ActiveSequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nexuswal",
			Subsystem: "wal",
			Name:      "active_sequence",
			Help:      "Sequence number of the active segment",
		}),
		RecoveredEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nexuswal",
			Subsystem: "wal",
			Name:      "recovered_entries",
			Help:      "Entries carried over from an unsealed segment at open",
		}),
		PurgedSegmentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nexuswal",
			Subsystem: "wal",
			Name:      "purged_segments_total",
			Help:      "Total number of sealed segment files removed by purge",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.AppendsTotal,
			m.AppendErrorsTotal,
			m.CheckpointsTotal,
			m.SegmentBytesWrittenTotal,
			m.SegmentWriteSeconds,
			m.BufferedBytes,
			m.BufferedEntries,
			m.ActiveSequence,
			m.RecoveredEntries,
			m.PurgedSegmentsTotal,
		)
	}

	return m
}

func (m *Metrics) recordAppend() {
	if m == nil {
		return
	}
	m.AppendsTotal.Inc()
}

func (m *Metrics) recordAppendError(reason string) {
	if m == nil {
		return
	}
	m.AppendErrorsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) recordCheckpoint() {
	if m == nil {
		return
	}
	m.CheckpointsTotal.Inc()
}

func (m *Metrics) recordSegmentWrite(bytes int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SegmentBytesWrittenTotal.Add(float64(bytes))
	m.SegmentWriteSeconds.Observe(elapsed.Seconds())
}

func (m *Metrics) setBuffer(entries, bytes int) {
	if m == nil {
		return
	}
	m.BufferedEntries.Set(float64(entries))
	m.BufferedBytes.Set(float64(bytes))
}

func (m *Metrics) setSequence(seq uint64) {
	if m == nil {
		return
	}
	m.ActiveSequence.Set(float64(seq))
}

func (m *Metrics) setRecovered(n int) {
	if m == nil {
		return
	}
	m.RecoveredEntries.Set(float64(n))
}

func (m *Metrics) recordPurged(n int) {
	if m == nil {
		return
	}
	m.PurgedSegmentsTotal.Add(float64(n))
}
