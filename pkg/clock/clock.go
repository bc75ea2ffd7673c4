// Package clock provides the monotonic millisecond clock driving all
// timers of the device.
package clock

import (
	"sync"
	"time"
)

// Millis is a millisecond counter since boot. It wraps around after
// about 49 days; compare instants only through Since.
type Millis uint32

// Since returns the elapsed milliseconds from t to now, tolerating a
// single wraparound of the counter.
func Since(now, t Millis) Millis {
	return now - t
}

// Clock reads the current instant.
type Clock interface {
	Now() Millis
}

// Boot is a Clock counting from the moment it was created.
type Boot struct {
	start time.Time
}

// NewBoot creates a Boot clock starting at zero.
func NewBoot() *Boot {
	return &Boot{start: time.Now()}
}

// Now implements Clock.
func (b *Boot) Now() Millis {
	return Millis(uint32(time.Since(b.start) / time.Millisecond))
}

// Manual is a Clock only moved explicitly, used by tests and simulations.
type Manual struct {
	now  Millis
	lock sync.Mutex
}

// NewManual creates a Manual clock at the given instant.
func NewManual(at Millis) *Manual {
	return &Manual{now: at}
}

// Now implements Clock.
func (m *Manual) Now() Millis {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.now
}

// Set moves the clock to an instant.
func (m *Manual) Set(at Millis) {
	m.lock.Lock()
	m.now = at
	m.lock.Unlock()
}

// Advance moves the clock forward and returns the new instant.
func (m *Manual) Advance(d Millis) Millis {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.now += d
	return m.now
}
