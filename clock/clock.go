// Package clock wraps jonboulle/clockwork as the time port from
// spec.md §6 and the one-shot, re-armable timer service from spec.md
// §9. The teacher injects clockwork.Clock in server/http.go and
// user/user.go for the same reason: deterministic, accelerated time
// in tests.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time port: the current instant, plus a one-shot,
// cancellable, re-armable timer.
type Clock = clockwork.Clock

// Timer is a cancellable, re-armable one-shot timer.
type Timer = clockwork.Timer

// NewReal returns a Clock backed by the system clock.
func NewReal() Clock { return clockwork.NewRealClock() }

// NewFake returns a Clock whose time only advances when told to,
// for accelerated tests of the refresh scheduler's back-off and
// eager-refresh timing.
func NewFake() clockwork.FakeClock { return clockwork.NewFakeClock() }

// IntervalUntil returns the non-negative duration from c.Now() until
// t, clamping negative (already-elapsed) intervals to zero — spec.md
// §4.3's "negative timeouts clamp to 0" rule applies uniformly to
// every schedule computed against the clock.
func IntervalUntil(c Clock, t time.Time) time.Duration {
	d := t.Sub(c.Now())
	if d < 0 {
		return 0
	}
	return d
}
