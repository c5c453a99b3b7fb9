// ABOUTME: Debounced, deduplicated command dispatcher
// ABOUTME: Rate-limits actuator commands to one per settled change per target
package dispatch

import (
	"bytes"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// Debounce is how long a pending change must sit unmodified before it
	// is eligible to send.
	Debounce = 100 * time.Millisecond

	// MinInterval is the minimum spacing between sends to one target,
	// matching the mesh controller's throttle.
	MinInterval = 300 * time.Millisecond
)

// Transport delivers a payload to an actuator target. Fire-and-forget: the
// dispatcher never retries on error.
type Transport interface {
	Send(target string, payload []byte) error
}

// targetState tracks the debounce window for one actuator target.
type targetState struct {
	pending    []byte
	lastSent   []byte
	lastChange time.Time
	lastSentAt time.Time
	hasPending bool
}

// Dispatcher coalesces color decisions per target and forwards at most one
// command per settled, changed decision. All methods must be called from the
// control loop; the dispatcher has no locking of its own.
type Dispatcher struct {
	transport Transport
	targets   map[string]*targetState
	log       *logrus.Entry
}

// New creates a dispatcher bound to a transport. A nil transport is legal
// but every flush is reported as a configuration error and dropped.
func New(transport Transport) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		targets:   make(map[string]*targetState),
		log:       logrus.WithField("component", "dispatch"),
	}
}

// Submit records a payload as the pending decision for a target. Nothing is
// sent until Tick finds the debounce and interval windows satisfied.
func (d *Dispatcher) Submit(target string, payload []byte, now time.Time) {
	st, ok := d.targets[target]
	if !ok {
		// The interval clock starts when the target first appears, so a
		// brand-new target still waits out MinInterval before its first send.
		st = &targetState{lastSentAt: now}
		d.targets[target] = st
	}

	// A resubmit of the identical payload is not a change; the debounce
	// clock keeps running from the last real change.
	if !st.hasPending || !bytes.Equal(st.pending, payload) {
		st.lastChange = now
	}
	st.pending = append(st.pending[:0], payload...)
	st.hasPending = true
}

// Tick flushes any target whose pending decision has settled.
func (d *Dispatcher) Tick(now time.Time) {
	for target, st := range d.targets {
		d.flush(target, st, now)
	}
}

func (d *Dispatcher) flush(target string, st *targetState, now time.Time) {
	if !st.hasPending {
		return
	}
	if now.Sub(st.lastChange) < Debounce {
		return
	}
	if now.Sub(st.lastSentAt) < MinInterval {
		return
	}

	// Unchanged payload: skip the send, the actuator is already there.
	if bytes.Equal(st.pending, st.lastSent) {
		st.hasPending = false
		return
	}

	if d.transport == nil {
		d.log.Warn("no transport bound, dropping command")
		st.hasPending = false
		return
	}

	if err := d.transport.Send(target, st.pending); err != nil {
		// Fire-and-forget: log and move on, no retry.
		d.log.WithError(err).WithField("target", target).Warn("transport send failed")
	}

	st.lastSent = append(st.lastSent[:0], st.pending...)
	st.lastSentAt = now
	st.hasPending = false

	d.log.WithFields(logrus.Fields{
		"target":  target,
		"settled": now.Sub(st.lastChange),
	}).Debug("sent debounced command")
}
