package button

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	mu      sync.Mutex
	samples []any
	done    chan struct{}
	reads   int
}

func (s *scriptedSource) Level(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reads >= len(s.samples) {
		select {
		case <-s.done:
		default:
			close(s.done)
		}
		return 0, errors.New("exhausted")
	}
	sample := s.samples[s.reads]
	s.reads++
	if err, ok := sample.(error); ok {
		return 0, err
	}
	return sample.(float64), nil
}

func TestWatcherEmitsDebouncedPresses(t *testing.T) {
	source := &scriptedSource{
		samples: []any{0.5, 0.5, 0.6, 0.7, errors.New("pulse hiccup"), 0.8, 0.8, 0.4},
		done:    make(chan struct{}),
	}

	w := NewWatcher(source, nil, time.Millisecond, nil)
	clock := epoch
	w.now = func() time.Time {
		clock = clock.Add(300 * time.Millisecond)
		return clock
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var presses []Press
	runDone := make(chan error, 1)
	go func() {
		runDone <- w.Run(ctx, func(p Press) {
			mu.Lock()
			presses = append(presses, p)
			mu.Unlock()
		})
	}()

	select {
	case <-source.done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not drain samples")
	}
	cancel()
	require.NoError(t, <-runDone)

	mu.Lock()
	defer mu.Unlock()
	// Samples land at 300ms spacing: calibrate, jitter, press, ramp, (error), ramp, jitter, press.
	require.Len(t, presses, 2)
	require.Equal(t, epoch.Add(900*time.Millisecond), presses[0].At)
	require.Equal(t, epoch.Add(2100*time.Millisecond), presses[1].At)
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	w := NewWatcher(LevelFunc(func(context.Context) (float64, error) { return 0.5, nil }), nil, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx, nil))
}

func TestNormalizeVolume(t *testing.T) {
	require.Equal(t, 0.0, normalizeVolume(nil))
	require.InDelta(t, 1.0, normalizeVolume([]uint32{pulseVolumeNorm, pulseVolumeNorm}), 1e-9)
	require.InDelta(t, 0.5, normalizeVolume([]uint32{pulseVolumeNorm / 2}), 1e-9)
	require.InDelta(t, 0.75, normalizeVolume([]uint32{pulseVolumeNorm, pulseVolumeNorm / 2}), 1e-9)
}
