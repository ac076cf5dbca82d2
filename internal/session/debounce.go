package session

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDebounceWindow is how long clock actions stay disabled after a tap
// under the timer policy.
const DefaultDebounceWindow = 2000 * time.Millisecond

// DebouncePolicy decides when a pending clock action stops blocking new ones.
type DebouncePolicy int

const (
	// DebounceTimer re-enables clock actions after a fixed window, whether or
	// not the remote call has finished. A slow call can still be in flight
	// when the user is allowed to tap again.
	DebounceTimer DebouncePolicy = iota
	// DebounceCompletion re-enables clock actions once the remote result has
	// been reconciled.
	DebounceCompletion
)

// String implements fmt.Stringer.
func (p DebouncePolicy) String() string {
	switch p {
	case DebounceCompletion:
		return "completion"
	default:
		return "timer"
	}
}

// ParseDebouncePolicy parses "timer" or "completion".
func ParseDebouncePolicy(s string) (DebouncePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "timer":
		return DebounceTimer, nil
	case "completion":
		return DebounceCompletion, nil
	default:
		return DebounceTimer, fmt.Errorf("unknown debounce policy %q (want timer or completion)", s)
	}
}

// Debounce is the clock-action cooldown: a single flag plus its release rule.
type Debounce struct {
	Policy DebouncePolicy
	Window time.Duration

	busy bool
}

// NewDebounce returns a cooldown using policy. A non-positive window falls
// back to DefaultDebounceWindow.
func NewDebounce(policy DebouncePolicy, window time.Duration) *Debounce {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debounce{Policy: policy, Window: window}
}

// Acquire sets the flag. It returns false, and changes nothing, if the flag
// is already set; callers drop the action instead of queueing it.
func (d *Debounce) Acquire() bool {
	if d.busy {
		return false
	}
	d.busy = true
	return true
}

// Busy reports whether clock actions are currently disabled.
func (d *Debounce) Busy() bool {
	return d.busy
}

// ReleaseAfterTimer clears the flag when the fixed window elapses. It is a
// no-op under the completion policy.
func (d *Debounce) ReleaseAfterTimer() {
	if d.Policy == DebounceTimer {
		d.busy = false
	}
}

// ReleaseAfterCompletion clears the flag once a result was reconciled. It is
// a no-op under the timer policy.
func (d *Debounce) ReleaseAfterCompletion() {
	if d.Policy == DebounceCompletion {
		d.busy = false
	}
}

// Reset clears the flag unconditionally.
func (d *Debounce) Reset() {
	d.busy = false
}
