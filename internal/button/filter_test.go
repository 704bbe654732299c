package button

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func TestFilterFirstSampleCalibrates(t *testing.T) {
	f := NewFilter()
	require.False(t, f.Observe(0.9, at(0)))
	require.True(t, f.Observe(0.5, at(10)))
}

func TestFilterIgnoresJitterBelowThreshold(t *testing.T) {
	f := NewFilter()
	require.False(t, f.Observe(0.50, at(0)))
	require.False(t, f.Observe(0.51, at(5000)))
	require.False(t, f.Observe(0.525, at(10000)))
	require.True(t, f.Observe(0.56, at(15000)))
}

func TestFilterSuppressesRampInsideWindow(t *testing.T) {
	f := NewFilter()
	require.False(t, f.Observe(0.2, at(0)))
	require.True(t, f.Observe(0.3, at(100)))

	// Holding the key ramps the volume; every step lands inside the window.
	require.False(t, f.Observe(0.4, at(300)))
	require.False(t, f.Observe(0.5, at(600)))
	require.False(t, f.Observe(0.6, at(899)))

	require.True(t, f.Observe(0.7, at(900)))
}

func TestFilterIsDirectionAgnostic(t *testing.T) {
	f := NewFilter()
	require.False(t, f.Observe(0.5, at(0)))
	require.True(t, f.Observe(0.6, at(1000)))
	require.True(t, f.Observe(0.5, at(2000)))
}

func TestFilterUpdatesLevelWhileSuppressed(t *testing.T) {
	f := NewFilter()
	require.False(t, f.Observe(0.5, at(0)))
	require.True(t, f.Observe(0.6, at(10)))
	require.False(t, f.Observe(0.9, at(20)))

	// The suppressed sample moved the reference; a tiny change after the window is jitter.
	require.False(t, f.Observe(0.91, at(2000)))
}

func TestFilterDropsNonFiniteSamples(t *testing.T) {
	f := NewFilter()
	require.False(t, f.Observe(math.NaN(), at(0)))
	require.False(t, f.Observe(math.Inf(1), at(1)))
	// Still uncalibrated: this is the calibration sample.
	require.False(t, f.Observe(0.4, at(2)))
	require.True(t, f.Observe(0.6, at(3)))
}

func TestFilterReset(t *testing.T) {
	f := NewFilter()
	require.False(t, f.Observe(0.4, at(0)))
	require.True(t, f.Observe(0.6, at(1)))
	f.Reset()
	require.False(t, f.Observe(0.1, at(2)))
}

func TestFilterZeroValueUsesDefaults(t *testing.T) {
	f := &Filter{}
	require.False(t, f.Observe(0.5, at(0)))
	require.False(t, f.Observe(0.51, at(1)))
	require.True(t, f.Observe(0.6, at(2)))
	require.False(t, f.Observe(0.8, at(700)))
}

// Randomized checks of the three filter properties.
func TestFilterProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		f := NewFilter()
		var emits []time.Time
		ts := epoch
		for i := 0; i < 60; i++ {
			ts = ts.Add(time.Duration(rng.Intn(600)) * time.Millisecond)
			if f.Observe(rng.Float64(), ts) {
				require.NotZero(t, i, "first sample must never emit")
				emits = append(emits, ts)
			}
		}
		for i := 1; i < len(emits); i++ {
			require.GreaterOrEqual(t, emits[i].Sub(emits[i-1]), DefaultWindow)
		}
	}

	for run := 0; run < 200; run++ {
		f := NewFilter()
		base := rng.Float64()
		require.False(t, f.Observe(base, epoch))
		delta := rng.Float64() * 0.0199
		if rng.Intn(2) == 0 {
			delta = -delta
		}
		require.False(t, f.Observe(base+delta, epoch.Add(time.Duration(rng.Intn(5000))*time.Millisecond)))
	}
}
