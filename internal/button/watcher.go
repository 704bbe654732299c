package button

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPollInterval is how often the watcher samples the volume level.
const DefaultPollInterval = 50 * time.Millisecond

// LevelSource reads the current output volume on a [0,1] scale.
type LevelSource interface {
	Level(context.Context) (float64, error)
}

// LevelFunc adapts a function to the LevelSource interface.
type LevelFunc func(context.Context) (float64, error)

func (f LevelFunc) Level(ctx context.Context) (float64, error) {
	return f(ctx)
}

// Watcher samples a LevelSource and publishes debounced presses.
type Watcher struct {
	source   LevelSource
	filter   *Filter
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewWatcher builds a watcher around source. A nil filter uses the defaults.
func NewWatcher(source LevelSource, filter *Filter, interval time.Duration, logger *slog.Logger) *Watcher {
	if filter == nil {
		filter = NewFilter()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		source:   source,
		filter:   filter,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run samples until ctx is done, calling onPress for every accepted press.
// onPress runs on the watcher goroutine and should return quickly.
func (w *Watcher) Run(ctx context.Context, onPress func(Press)) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.sample(ctx, onPress)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// sample reads one level; read failures are skipped, never surfaced as presses.
func (w *Watcher) sample(ctx context.Context, onPress func(Press)) {
	level, err := w.source.Level(ctx)
	if err != nil {
		if ctx.Err() == nil && w.logger != nil {
			w.logger.Debug("volume level read failed", "error", err.Error())
		}
		return
	}

	at := w.now()
	if w.filter.Observe(level, at) && onPress != nil {
		onPress(Press{At: at})
	}
}
