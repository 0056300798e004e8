// Package clock provides the time source the WAL reads timestamps from.
// Production code uses SystemClock; tests inject a MockClock.
package clock

import (
	"sync"
	"time"
)

// Clock is the interface for reading the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Default is the shared SystemClock.
var Default Clock = SystemClock{}

var unixEpoch = time.Unix(0, 0)

// UnixSeconds returns the clock's current time as fractional seconds since
// the Unix epoch. A clock that reports a time before the epoch is treated as
// unavailable, which is an unrecoverable environment error, so it panics.
func UnixSeconds(c Clock) float64 {
	now := c.Now()
	if now.Before(unixEpoch) {
		panic("clock: current time " + now.String() + " is before the Unix epoch")
	}
	return float64(now.UnixNano()) / float64(time.Second)
}

// MockClock is a manually driven Clock for tests. It is safe for concurrent use.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a MockClock frozen at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mocked time forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// SetTime sets the mocked time to t.
func (m *MockClock) SetTime(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}
