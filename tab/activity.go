package tab

import (
	"time"

	"golang.org/x/time/rate"
)

// ActivityMode is the per-tab scheduling class controlling wake
// frequency. It never affects correctness, only how often the worker is
// given a chance to notice dirty state.
type ActivityMode int

const (
	ActivityActive ActivityMode = iota
	ActivityBackgroundLive
	ActivityBackgroundIdle
	ActivitySuspended
)

func (m ActivityMode) String() string {
	switch m {
	case ActivityActive:
		return "Active"
	case ActivityBackgroundLive:
		return "BackgroundLive"
	case ActivityBackgroundIdle:
		return "BackgroundIdle"
	case ActivitySuspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// Interval returns the nominal tick period for m, or 0 for Suspended
// (which ticks only on an explicit wake, never on a timer).
func (m ActivityMode) Interval() time.Duration {
	switch m {
	case ActivityActive:
		return 16 * time.Millisecond
	case ActivityBackgroundLive:
		return 100 * time.Millisecond
	case ActivityBackgroundIdle:
		return time.Second
	default:
		return 0
	}
}

// TickSource is an injectable clock: each call to Chan returns the
// channel the worker should select on for its next wake, given the
// currently configured mode. The default implementation wraps
// time.Ticker; tests can substitute a manual source to drive the worker
// deterministically.
type TickSource interface {
	// Chan returns the tick channel for mode; called once whenever the
	// worker's mode changes, so implementations may recreate an internal
	// ticker. Returns nil for ActivitySuspended.
	Chan(mode ActivityMode) <-chan time.Time
	// Stop releases any resources held by the current ticker.
	Stop()
}

// limitedTicker is the production TickSource. It layers a token-bucket
// rate.Limiter on top of a time.Ticker so that a burst of mode changes
// (e.g. rapid foreground/background flapping) cannot drive the tick
// channel faster than the active mode's nominal rate allows.
type limitedTicker struct {
	ticker  *time.Ticker
	limiter *rate.Limiter
	ch      chan time.Time
	stop    chan struct{}
}

// NewTickSource returns the default, real-clock TickSource.
func NewTickSource() TickSource {
	return &limitedTicker{}
}

func (t *limitedTicker) Chan(mode ActivityMode) <-chan time.Time {
	t.Stop()
	interval := mode.Interval()
	if interval <= 0 {
		return nil
	}
	t.ticker = time.NewTicker(interval)
	t.limiter = rate.NewLimiter(rate.Every(interval), 1)
	t.ch = make(chan time.Time, 1)
	t.stop = make(chan struct{})
	go t.pump()
	return t.ch
}

func (t *limitedTicker) pump() {
	for {
		select {
		case now := <-t.ticker.C:
			if t.limiter.Allow() {
				select {
				case t.ch <- now:
				default:
				}
			}
		case <-t.stop:
			return
		}
	}
}

func (t *limitedTicker) Stop() {
	if t.ticker != nil {
		t.ticker.Stop()
		close(t.stop)
		t.ticker = nil
	}
}
