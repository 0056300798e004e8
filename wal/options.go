package wal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/INLOpen/nexuswal/clock"
	"github.com/INLOpen/nexuswal/hooks"
)

// SyncMode defines whether segment rewrites are flushed to stable storage.
type SyncMode string

const (
	SyncAlways   SyncMode = "always"   // fdatasync every segment rewrite before it is renamed into place
	SyncDisabled SyncMode = "disabled" // leave flushing to the OS (tests, benchmarks)
)

const (
	// DefaultPageSize is the flush threshold used when Options.PageSize is zero.
	DefaultPageSize = 4096
	// DefaultDir is the directory used when Options.Dir is empty.
	DefaultDir = "."

	tracerName = "github.com/INLOpen/nexuswal/wal"
)

var (
	ErrInvalidOptions = errors.New("invalid wal options")
	ErrClosed         = errors.New("wal manager is closed")
	// ErrSequenceExhausted is returned when sealing would move past the
	// largest representable segment sequence.
	ErrSequenceExhausted = errors.New("wal segment sequence exhausted")
)

// Options holds configuration for a Manager.
type Options struct {
	Dir string
	// PageSize is the buffered byte count above which the next append seals
	// the active segment first.
	PageSize int
	SyncMode SyncMode

	Logger      *slog.Logger
	Clock       clock.Clock
	HookManager hooks.HookManager
	Tracer      trace.Tracer
	Metrics     *Metrics

	// DiscardRecoveredEntries drops the entries of an unsealed segment found at
	// open instead of carrying them into the buffer. The next append then
	// overwrites that segment.
	DiscardRecoveredEntries bool

	// ExclusiveLock takes an flock on <Dir>/LOCK for the lifetime of the
	// manager, waiting at most LockTimeout for a competing holder.
	ExclusiveLock bool
	LockTimeout   time.Duration
}

func (o *Options) applyDefaults() error {
	if o.Dir == "" {
		o.Dir = DefaultDir
	}
	if o.PageSize < 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidOptions, o.PageSize)
	}
	if o.PageSize == 0 {
		o.PageSize = DefaultPageSize
	}
	switch o.SyncMode {
	case "":
		o.SyncMode = SyncAlways
	case SyncAlways, SyncDisabled:
	default:
		return fmt.Errorf("%w: unknown sync mode %q", ErrInvalidOptions, o.SyncMode)
	}
	if o.LockTimeout < 0 {
		return fmt.Errorf("%w: lock timeout must not be negative", ErrInvalidOptions)
	}

	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	o.Logger = o.Logger.With("component", "WALManager")
	if o.Clock == nil {
		o.Clock = clock.Default
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}
	return nil
}

// Builder assembles Options through chained setters.
//
//	m, err := wal.NewBuilder().WithPageSize(8192).WithDirectory("/var/lib/app/wal").Build()
type Builder struct {
	opts Options
}

// NewBuilder returns a builder with an empty page size and directory, which
// Build resolves to DefaultPageSize and DefaultDir.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) WithPageSize(pageSize int) *Builder {
	b.opts.PageSize = pageSize
	return b
}

func (b *Builder) WithDirectory(dir string) *Builder {
	b.opts.Dir = dir
	return b
}

func (b *Builder) WithSyncMode(mode SyncMode) *Builder {
	b.opts.SyncMode = mode
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.opts.Logger = logger
	return b
}

func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.opts.Clock = c
	return b
}

func (b *Builder) WithHookManager(hm hooks.HookManager) *Builder {
	b.opts.HookManager = hm
	return b
}

func (b *Builder) WithTracer(tracer trace.Tracer) *Builder {
	b.opts.Tracer = tracer
	return b
}

func (b *Builder) WithMetrics(metrics *Metrics) *Builder {
	b.opts.Metrics = metrics
	return b
}

func (b *Builder) WithDiscardRecoveredEntries(discard bool) *Builder {
	b.opts.DiscardRecoveredEntries = discard
	return b
}

func (b *Builder) WithExclusiveLock(timeout time.Duration) *Builder {
	b.opts.ExclusiveLock = true
	b.opts.LockTimeout = timeout
	return b
}

// Options returns a copy of the options collected so far.
func (b *Builder) Options() Options {
	return b.opts
}

// Build runs the recovery scan and returns a ready Manager.
func (b *Builder) Build() (*Manager, error) {
	return Open(b.opts)
}
