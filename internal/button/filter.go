// Package button turns noisy volume-level readings into discrete press events.
package button

import (
	"math"
	"time"
)

const (
	// DefaultThreshold is the minimum level change, on a [0,1] scale, that counts as movement.
	DefaultThreshold = 0.02
	// DefaultWindow is the minimum spacing between two accepted presses.
	DefaultWindow = 800 * time.Millisecond
)

// Press is emitted once per accepted button press.
type Press struct {
	At time.Time
}

// Filter debounces volume-level samples. It answers "did a press-like event
// happen", never "which button": up and down are indistinguishable.
//
// Filter is not safe for concurrent use; Watcher owns one per goroutine.
type Filter struct {
	Threshold float64
	Window    time.Duration

	calibrated bool
	lastLevel  float64
	emitted    bool
	lastEmit   time.Time
}

// NewFilter returns a filter with the default threshold and window.
func NewFilter() *Filter {
	return &Filter{Threshold: DefaultThreshold, Window: DefaultWindow}
}

// Observe feeds one sample and reports whether it is an accepted press.
// Non-finite samples are dropped without touching filter state.
func (f *Filter) Observe(level float64, at time.Time) bool {
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return false
	}

	// The OS delivers an initial readback that must not look like a press.
	if !f.calibrated {
		f.calibrated = true
		f.lastLevel = level
		return false
	}

	delta := math.Abs(level - f.lastLevel)
	f.lastLevel = level

	if delta < f.threshold() {
		return false
	}
	if f.emitted && at.Sub(f.lastEmit) < f.window() {
		return false
	}

	f.emitted = true
	f.lastEmit = at
	return true
}

// Reset forgets calibration and the debounce anchor.
func (f *Filter) Reset() {
	f.calibrated = false
	f.lastLevel = 0
	f.emitted = false
	f.lastEmit = time.Time{}
}

func (f *Filter) threshold() float64 {
	if f.Threshold <= 0 {
		return DefaultThreshold
	}
	return f.Threshold
}

func (f *Filter) window() time.Duration {
	if f.Window <= 0 {
		return DefaultWindow
	}
	return f.Window
}
