package input

import "time"

// DefaultCooldown is the minimum gap between a release and the next press.
const DefaultCooldown = 500 * time.Millisecond

// Debouncer is a two-state machine over button samples. It is not safe for
// concurrent use.
type Debouncer struct {
	cooldown    time.Duration
	released    bool
	lastRelease time.Time
}

// NewDebouncer returns a debouncer in the released state. A non-positive
// cooldown uses DefaultCooldown.
func NewDebouncer(cooldown time.Duration) *Debouncer {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Debouncer{cooldown: cooldown, released: true}
}

// Cooldown returns the configured cooldown.
func (d *Debouncer) Cooldown() time.Duration {
	return d.cooldown
}

// Step consumes the sample taken at now and reports a dispatched press.
func (d *Debouncer) Step(now time.Time, sample Button) (Button, bool) {
	if sample == None {
		if !d.released {
			d.released = true
			d.lastRelease = now
		}
		return None, false
	}
	if !d.released {
		return None, false
	}
	if !d.lastRelease.IsZero() && now.Sub(d.lastRelease) < d.cooldown {
		return None, false
	}
	d.released = false
	return sample, true
}
