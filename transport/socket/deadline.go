package socket

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// deadLine is the absolute expiry of one logical multi-part operation.
// It stays unarmed until the first partial attempt, and once armed it is
// fixed until reset.
type deadLine struct {
	clock clock.Clock

	at    time.Time
	armed bool

	t *clock.Timer
	m sync.Mutex

	fired chan struct{}
}

func newDeadLine(clock clock.Clock) *deadLine {
	return &deadLine{
		clock: clock,
		fired: make(chan struct{}),
	}
}

// arm sets the deadline to now+timeout unless it is already armed.
func (d *deadLine) arm(timeout time.Duration) {
	d.m.Lock()
	defer d.m.Unlock()

	if d.armed {
		return
	}
	d.armed = true
	d.at = d.clock.Now().Add(timeout)

	fired := d.fired
	d.t = d.clock.AfterFunc(d.clock.Until(d.at), func() {
		close(fired)
	})
}

// reset returns the deadline to the unarmed state.
func (d *deadLine) reset() {
	d.m.Lock()
	defer d.m.Unlock()

	d.stopLocked()
	d.armed = false
	d.at = time.Time{}
}

func (d *deadLine) stop() {
	d.m.Lock()
	defer d.m.Unlock()
	d.stopLocked()
}

func (d *deadLine) stopLocked() {
	if d.t != nil {
		d.t.Stop()
		d.t = nil
	}
	// The timer closure holds its own reference to the old channel.
	d.fired = make(chan struct{})
}

func (d *deadLine) remaining() time.Duration {
	d.m.Lock()
	defer d.m.Unlock()
	return d.clock.Until(d.at)
}

func (d *deadLine) expiry() time.Time {
	d.m.Lock()
	defer d.m.Unlock()
	return d.at
}

// wait returns a channel closed once the armed deadline passes.
func (d *deadLine) wait() <-chan struct{} {
	d.m.Lock()
	defer d.m.Unlock()
	return d.fired
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}
