package listeners

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/INLOpen/nexuswal/core"
	"github.com/INLOpen/nexuswal/hooks"
)

// ErrPayloadRejected is returned from PreWALAppend when a guard rule is broken
// and the guard is enforcing.
var ErrPayloadRejected = errors.New("payload rejected by guard")

// PayloadRule bounds the payload size accepted for one entry kind.
type PayloadRule struct {
	Kind     core.EntryKind
	MaxBytes int
}

// PayloadGuardListener checks entries before they are buffered. In enforcing
// mode a violation cancels the append; otherwise it is only logged.
type PayloadGuardListener struct {
	logger  *slog.Logger
	rules   map[core.EntryKind]int
	enforce bool
}

// NewPayloadGuardListener creates a guard from the given rules. A kind without
// a rule is accepted unconditionally.
func NewPayloadGuardListener(logger *slog.Logger, rules []PayloadRule, enforce bool) *PayloadGuardListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ruleMap := make(map[core.EntryKind]int, len(rules))
	for _, rule := range rules {
		ruleMap[rule.Kind] = rule.MaxBytes
	}

	return &PayloadGuardListener{
		logger:  logger.With("component", "PayloadGuardListener"),
		rules:   ruleMap,
		enforce: enforce,
	}
}

// OnEvent handles PreWALAppend events.
func (l *PayloadGuardListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	if event.Type() != hooks.EventPreWALAppend {
		return nil
	}

	payload, ok := event.Payload().(hooks.WALAppendPayload)
	if !ok || payload.Entry == nil {
		l.logger.Error("Received PreWALAppend event with incorrect payload type", "payload_type", fmt.Sprintf("%T", event.Payload()))
		return nil
	}

	limit, hasRule := l.rules[payload.Entry.Kind]
	if !hasRule || len(payload.Entry.Payload) <= limit {
		return nil
	}

	l.logger.Warn("Oversized payload",
		"kind", payload.Entry.Kind.String(),
		"tx_id", payload.Entry.TransactionID,
		"size", len(payload.Entry.Payload),
		"max_bytes", limit,
		"enforce", l.enforce,
	)
	if l.enforce {
		return fmt.Errorf("%w: %s payload is %d bytes, limit %d", ErrPayloadRejected, payload.Entry.Kind, len(payload.Entry.Payload), limit)
	}
	return nil
}

// Priority defines the execution order.
func (l *PayloadGuardListener) Priority() int { return 10 }

// IsAsync is ignored for Pre-hooks.
func (l *PayloadGuardListener) IsAsync() bool { return false }
