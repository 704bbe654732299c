package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/secondeye/secondeye/internal/audio"
	"github.com/secondeye/secondeye/internal/backend"
	"github.com/secondeye/secondeye/internal/button"
	"github.com/secondeye/secondeye/internal/camera"
	"github.com/secondeye/secondeye/internal/config"
	"github.com/secondeye/secondeye/internal/imaging"
	"github.com/secondeye/secondeye/internal/indicator"
	"github.com/secondeye/secondeye/internal/ipc"
	"github.com/secondeye/secondeye/internal/logging"
	"github.com/secondeye/secondeye/internal/metrics"
	"github.com/secondeye/secondeye/internal/playback"
	"github.com/secondeye/secondeye/internal/session"
	"github.com/secondeye/secondeye/internal/version"
)

const (
	acquireDialTimeout = 180 * time.Millisecond
	acquireRetries      = 8
	buttonTriggerWait   = 2 * time.Second
)

// daemon is the long-lived owner of the control socket and every device.
type daemon struct {
	cfg    config.Config
	logger *slog.Logger

	metrics    *metrics.Recorder
	recorder   *audio.Recorder
	notifier   *indicator.Notifier
	controller *session.Controller

	// newLevelSource opens the sink the button watcher follows.
	newLevelSource func(sink string) (levelSource, error)
}

type levelSource interface {
	button.LevelSource
	Close()
}

func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, acquireDialTimeout, acquireRetries)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("acquire control socket failed", "socket", socketPath, "error", err.Error())
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	d, err := newDaemon(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logger.Info("daemon started",
		"socket", socketPath,
		"backend", cfg.Backend.BaseURL,
		"button", cfg.Button.Enable,
		"metrics_addr", cfg.Metrics.Addr,
		"version", version.Get().Version,
	)
	fmt.Fprintf(r.Stdout, "%s listening on %s\n", binaryName, socketPath)

	if err := d.run(ctx, listener); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("daemon stopped", "error", err.Error())
		return 1
	}
	logger.Info("daemon stopped")
	return 0
}

func newDaemon(cfg config.Config, logger *slog.Logger) (*daemon, error) {
	stagingDir, framesDir, err := artifactDirs(cfg.Debug)
	if err != nil {
		return nil, err
	}

	d := &daemon{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		newLevelSource: func(sink string) (levelSource, error) {
			source, err := button.NewPulseSource(sink)
			if err != nil {
				return nil, err
			}
			return source, nil
		},
	}

	d.recorder = audio.NewRecorder(audio.RecorderConfig{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		Dir:      stagingDir,
		Keep:     cfg.Debug.AudioDump,
		Logger:   logger,
	})
	cam := camera.New(camera.Config{
		Argv:    cfg.Camera.CaptureCmd.Argv,
		Timeout: time.Duration(cfg.Camera.TimeoutMS) * time.Millisecond,
		KeepDir: framesDir,
		Logger:  logger,
	})
	client := backend.New(cfg.Backend.BaseURL,
		backend.WithTimeout(time.Duration(cfg.Backend.TimeoutMS)*time.Millisecond),
		backend.WithUserAgent(version.UserAgent()),
	)
	player := playback.NewController(playback.PulseSink{}, logger)
	d.notifier = indicator.NewNotifier(cfg.Indicator, logger)

	d.controller = session.NewController(session.Deps{
		Logger:    logger,
		Recorder:  d.recorder,
		Camera:    cam,
		Backend:   client,
		Player:    player,
		Indicator: d.notifier,
		Observer:  d.metrics,
		OnResult:  func(result session.Result) { logSessionResult(logger, result) },
	}, session.Options{
		Image: imaging.Options{
			MaxEdge: cfg.Image.MaxEdge,
			Quality: cfg.Image.Quality,
		},
		MaxSearchDuration: cfg.Backend.MaxSearchDuration,
	})
	return d, nil
}

// run supervises the session loop, control socket, button watcher, and
// metrics exporter until ctx is done or one of them fails.
func (d *daemon) run(ctx context.Context, listener net.Listener) error {
	defer func() {
		_ = d.recorder.Close()
		d.notifier.Close()
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.controller.Run(gctx)
	})
	g.Go(func() error {
		server := &ipc.Server{Handler: d.controller, Logger: d.logger.With("component", "ipc")}
		return server.Serve(gctx, listener)
	})
	g.Go(func() error {
		d.logTransitions(gctx)
		return nil
	})

	if d.cfg.Button.Enable {
		g.Go(func() error {
			return d.watchButton(gctx)
		})
	}

	if addr := d.cfg.Metrics.Addr; addr != "" {
		exporter := metrics.NewExporter(addr, d.metrics.Registry())
		g.Go(func() error {
			if err := exporter.Run(gctx); err != nil {
				return fmt.Errorf("metrics exporter: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// watchButton turns sink volume presses into session triggers. A missing
// Pulse server disables the button; the control socket keeps working.
func (d *daemon) watchButton(ctx context.Context) error {
	source, err := d.newLevelSource(d.cfg.Button.Sink)
	if err != nil {
		d.logger.Warn("button disabled", "sink", d.cfg.Button.Sink, "error", err.Error())
		return nil
	}
	defer source.Close()

	filter := &button.Filter{
		Threshold: d.cfg.Button.Threshold,
		Window:    time.Duration(d.cfg.Button.WindowMS) * time.Millisecond,
	}
	interval := time.Duration(d.cfg.Button.PollMS) * time.Millisecond
	watcher := button.NewWatcher(source, filter, interval, d.logger)

	return watcher.Run(ctx, func(press button.Press) {
		d.metrics.ObserveButtonPress()

		triggerCtx, cancel := context.WithTimeout(ctx, buttonTriggerWait)
		defer cancel()
		state, err := d.controller.Trigger(triggerCtx, session.SourceButton)
		switch {
		case err == nil:
			d.logger.Debug("button trigger", "state", string(state), "at", press.At)
		case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrClosed):
			d.logger.Debug("button trigger ignored", "state", string(state), "error", err.Error())
		default:
			d.logger.Warn("button trigger failed", "state", string(state), "error", err.Error())
		}
	})
}

func (d *daemon) logTransitions(ctx context.Context) {
	updates, unsubscribe := d.controller.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			fields := []any{"state", string(snap.State), "interaction_id", snap.InteractionID}
			if snap.Reason != "" {
				fields = append(fields, "reason", snap.Reason)
			}
			d.logger.Debug("session state", fields...)
		}
	}
}

// artifactDirs picks where recordings and frames land. Debug dumps go under
// the state dir so they survive reboots; otherwise recordings use the temp dir.
func artifactDirs(debug config.DebugConfig) (string, string, error) {
	if !debug.AudioDump && !debug.KeepFrames {
		return "", "", nil
	}
	stateDir, err := logging.StateDir()
	if err != nil {
		return "", "", fmt.Errorf("resolve state dir: %w", err)
	}

	var staging, frames string
	if debug.AudioDump {
		staging = filepath.Join(stateDir, "recordings")
	}
	if debug.KeepFrames {
		frames = filepath.Join(stateDir, "frames")
	}
	return staging, frames, nil
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"interaction_id", result.ID,
		"source", string(result.Source),
		"outcome", result.Outcome(),
		"kind", result.Kind(),
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"audio_device", result.AudioDevice,
		"bytes_captured", result.BytesCaptured,
		"recording_ms", result.Recording.Milliseconds(),
		"upload_latency_ms", result.UploadLatency.Milliseconds(),
	}
	if resp := result.Response; resp != nil {
		fields = append(fields,
			"intent", string(resp.Intent),
			"action", string(resp.ActionTaken),
			"target", resp.Target(),
			"transcript_length", len(resp.Transcript),
			"response_length", len(resp.ResponseText),
		)
	}
	if result.PlaybackErr != nil {
		fields = append(fields, "playback_error", result.PlaybackErr.Error())
	}

	if result.Err != nil {
		logger.Error("interaction failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("interaction complete", fields...)
}
