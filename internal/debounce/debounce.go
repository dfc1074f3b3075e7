// Package debounce coalesces bursts of events into a single delayed call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs the most recently scheduled function once the delay has
// elapsed without another call to Trigger. Stop waits for a function already
// running, and after Stop returns no function runs. Scheduled functions must
// not call Stop or Flush.
type Debouncer struct {
	delay time.Duration

	// run is held while a scheduled function executes
	run sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// New returns a Debouncer with the given idle delay.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, cancelling anything scheduled before it.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() {
		d.run.Lock()
		defer d.run.Unlock()
		d.mu.Lock()
		// a timer that already fired may lose the race with a newer Trigger
		if d.stopped || seq != d.seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Flush cancels the pending call, if any, and runs fn immediately.
func (d *Debouncer) Flush(fn func()) {
	d.run.Lock()
	defer d.run.Unlock()
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.mu.Unlock()
	fn()
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending call, disables further scheduling and waits for a
// call already running to return.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.run.Lock()
	d.run.Unlock()
}
