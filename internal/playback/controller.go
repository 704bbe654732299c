// Package playback decodes answer audio and plays it, one clip at a time.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/secondeye/secondeye/internal/failure"
)

// ErrStopped is delivered when playback is interrupted by Stop or a newer Play.
var ErrStopped = errors.New("playback stopped")

// Controller owns the single active playback.
type Controller struct {
	sink   Sink
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController returns a Controller rendering through sink.
func NewController(sink Sink, logger *slog.Logger) *Controller {
	if sink == nil {
		sink = PulseSink{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{sink: sink, logger: logger}
}

// Play stops any current clip, then decodes and plays audio. The returned
// channel yields exactly one value: nil on natural completion, a decode
// failure, a stream error, or ErrStopped.
func (c *Controller) Play(ctx context.Context, audio []byte, format string) <-chan error {
	c.Stop()

	result := make(chan error, 1)

	pcm, err := Decode(audio, format)
	if err != nil {
		result <- failure.Decode("decode answer audio", err)
		close(result)
		return result
	}

	playCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		defer close(result)
		defer cancel()

		err := c.sink.Play(playCtx, pcm)

		c.mu.Lock()
		if c.done == done {
			c.cancel = nil
			c.done = nil
		}
		c.mu.Unlock()

		switch {
		case playCtx.Err() != nil && ctx.Err() == nil:
			result <- ErrStopped
		case err != nil:
			result <- fmt.Errorf("play answer: %w", err)
		default:
			result <- nil
		}
	}()

	c.logger.Debug("playback started", "seconds", pcm.Duration(), "sample_rate", pcm.SampleRate, "channels", pcm.Channels)
	return result
}

// IsPlaying reports whether a clip is currently rendering.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done != nil
}

// Stop interrupts the current clip and waits for its goroutine to finish.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
