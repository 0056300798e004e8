package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/INLOpen/nexuswal/core"
)

// EventType defines the type of a hook event.
type EventType string

// --- Event Type Constants ---
const (
	// Append Lifecycle Events
	EventPreWALAppend  EventType = "PreWALAppend"
	EventPostWALAppend EventType = "PostWALAppend"

	// Segment Lifecycle Events
	EventPostWALCheckpoint EventType = "PostWALCheckpoint"
	EventPostWALRecovery   EventType = "PostWALRecovery"
	EventPostWALPurge      EventType = "PostWALPurge"
)

// --- HookManager Interface and Implementation ---

// HookManager defines the interface for managing and triggering hooks.
type HookManager interface {
	// Register adds a listener for a specific event type.
	Register(eventType EventType, listener HookListener)
	// Trigger fires all registered listeners for a given event.
	// It handles synchronous vs. asynchronous execution based on the event type and listener preference.
	Trigger(ctx context.Context, event HookEvent) error
	// Stop waits for all asynchronous listeners to complete. Useful for graceful shutdown.
	Stop()
}

// HookEvent is the interface that all event objects must implement.
type HookEvent interface {
	// Type returns the type of the event.
	Type() EventType
	// Payload returns the data associated with the event.
	Payload() interface{}
}

// BaseEvent provides a base implementation for HookEvent.
type BaseEvent struct {
	eventType EventType
	payload   interface{}
}

func (e *BaseEvent) Type() EventType      { return e.eventType }
func (e *BaseEvent) Payload() interface{} { return e.payload }

// --- HookListener Interface ---

// HookListener defines the interface for components that want to listen to events.
type HookListener interface {
	// OnEvent is called by the HookManager when a registered event is triggered.
	// Returning an error from a "Pre" hook (e.g., PreWALAppend) cancels the operation.
	// Errors from "Post" hooks are logged without affecting the main operation.
	OnEvent(ctx context.Context, event HookEvent) error

	// Priority returns the listener's priority. Lower numbers are executed first.
	Priority() int

	// IsAsync indicates if the listener should be called asynchronously for Post-events.
	IsAsync() bool
}

// --- WAL Event Payloads ---

// WALAppendPayload is passed to PreWALAppend listeners. Entry points at the
// entry about to be buffered, so a listener may rewrite it in place.
type WALAppendPayload struct {
	Entry    *core.Entry
	Sequence uint64
}

// PostWALAppendPayload describes a finished (or failed) append.
type PostWALAppendPayload struct {
	Entry    core.Entry
	Sequence uint64
	// Rotated reports whether the append sealed the previous segment first.
	Rotated bool
	// BytesWritten is the size of the segment image written to disk.
	BytesWritten int
	Error        error
}

func NewPreWALAppendEvent(payload WALAppendPayload) HookEvent {
	return &BaseEvent{eventType: EventPreWALAppend, payload: payload}
}

func NewPostWALAppendEvent(payload PostWALAppendPayload) HookEvent {
	return &BaseEvent{eventType: EventPostWALAppend, payload: payload}
}

// PostWALCheckpointPayload is emitted after a segment has been sealed.
type PostWALCheckpointPayload struct {
	SealedSequence uint64
	NewSequence    uint64
	SealedPath     string
	// SealedEntries counts the entries in the sealed segment, marker included.
	SealedEntries int
}

func NewPostWALCheckpointEvent(payload PostWALCheckpointPayload) HookEvent {
	return &BaseEvent{eventType: EventPostWALCheckpoint, payload: payload}
}

// PostWALRecoveryPayload is emitted once Open has scanned the directory.
type PostWALRecoveryPayload struct {
	Sequence         uint64
	RecoveredEntries int
	// Sealed is true when the newest segment on disk ended with a checkpoint marker.
	Sealed   bool
	Duration time.Duration
}

func NewPostWALRecoveryEvent(payload PostWALRecoveryPayload) HookEvent {
	return &BaseEvent{eventType: EventPostWALRecovery, payload: payload}
}

// PostWALPurgePayload lists the segment files removed by a purge.
type PostWALPurgePayload struct {
	UpToSequence uint64
	Removed      []string
}

func NewPostWALPurgeEvent(payload PostWALPurgePayload) HookEvent {
	return &BaseEvent{eventType: EventPostWALPurge, payload: payload}
}

// listenerWithPriority wraps a listener with its priority for ordered dispatch.
type listenerWithPriority struct {
	listener HookListener
	priority int
}

// DefaultHookManager is a concrete implementation of HookManager.
type DefaultHookManager struct {
	// The map stores slices of listeners, kept sorted by priority.
	listeners map[EventType][]*listenerWithPriority
	mu        sync.RWMutex
	wg        sync.WaitGroup // For tracking async listeners
	logger    *slog.Logger
}

// NewHookManager creates a new DefaultHookManager.
func NewHookManager(logger *slog.Logger) HookManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DefaultHookManager{
		listeners: make(map[EventType][]*listenerWithPriority),
		logger:    logger,
	}
}

// Register adds a listener for a specific event type, maintaining priority order.
// Listeners with equal priority run in registration order.
func (m *DefaultHookManager) Register(eventType EventType, listener HookListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := &listenerWithPriority{
		listener: listener,
		priority: listener.Priority(),
	}

	l := m.listeners[eventType]
	idx := sort.Search(len(l), func(i int) bool {
		return l[i].priority > item.priority
	})

	l = append(l, nil)
	copy(l[idx+1:], l[idx:])
	l[idx] = item

	m.listeners[eventType] = l
}

// Trigger fires all registered listeners for a given event in priority order.
func (m *DefaultHookManager) Trigger(ctx context.Context, event HookEvent) error {
	m.mu.RLock()
	listeners := m.listeners[event.Type()]
	m.mu.RUnlock()

	if len(listeners) == 0 {
		return nil
	}

	isPreHook := strings.HasPrefix(string(event.Type()), "Pre")

	for _, item := range listeners {
		isListenerAsync := item.listener.IsAsync()

		// Pre-hooks are always synchronous so they can cancel the operation.
		if isPreHook || !isListenerAsync {
			if isPreHook && isListenerAsync {
				m.logger.Warn("Listener for Pre-hook requested async execution, but Pre-hooks are always synchronous.", "event", event.Type(), "priority", item.priority)
			}

			if err := item.listener.OnEvent(ctx, event); err != nil {
				if isPreHook {
					return fmt.Errorf("pre-hook for event %s (priority %d) failed: %w", event.Type(), item.priority, err)
				}
				m.logger.Error("Error from synchronous post-hook listener", "event", event.Type(), "priority", item.priority, "error", err)
			}
			continue
		}

		m.wg.Add(1)
		go func(currentItem *listenerWithPriority) {
			defer m.wg.Done()
			if err := currentItem.listener.OnEvent(ctx, event); err != nil {
				m.logger.Error("Error from asynchronous post-hook listener", "event", event.Type(), "priority", currentItem.priority, "error", err)
			}
		}(item)
	}
	return nil
}

// Stop waits for all asynchronous listeners to complete.
func (m *DefaultHookManager) Stop() {
	m.wg.Wait()
}
