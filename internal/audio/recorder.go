package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/secondeye/secondeye/internal/failure"
	"github.com/secondeye/secondeye/internal/interaction"
)

var (
	// ErrAlreadyRecording is returned by Start while a stream is open.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNotRecording is returned by Stop when no stream is open.
	ErrNotRecording = errors.New("no recording in progress")
	// ErrNoAudio is returned when the microphone produced no samples.
	ErrNoAudio = errors.New("no audio captured")
)

// RecorderConfig controls device selection and staging.
type RecorderConfig struct {
	Input    string
	Fallback string
	// Dir receives staged WAV files.
	Dir string
	// Keep disables removal of the previous interaction's file.
	Keep   bool
	Logger *slog.Logger
}

// Recorder stages one microphone question at a time as a WAV file.
type Recorder struct {
	cfg    RecorderConfig
	logger *slog.Logger

	selectDevice func(ctx context.Context, input, fallback string) (Selection, error)
	startStream  func(ctx context.Context, device Device) (Stream, error)
	now          func() time.Time

	mu        sync.Mutex
	stream    Stream
	cancel    context.CancelFunc
	device    Device
	startedAt time.Time
	lastPath  string
}

// NewRecorder returns a Pulse-backed recorder.
func NewRecorder(cfg RecorderConfig) *Recorder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = filepath.Join(os.TempDir(), "secondeye")
	}
	return &Recorder{
		cfg:          cfg,
		logger:       logger,
		selectDevice: SelectDevice,
		startStream:  StartCapture,
		now:          time.Now,
	}
}

// Start selects a microphone and opens a record stream.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return failure.Capture("start recording", ErrAlreadyRecording)
	}

	selection, err := r.selectDevice(ctx, r.cfg.Input, r.cfg.Fallback)
	if err != nil {
		return classify("select microphone", err)
	}
	if selection.Warning != "" {
		r.logger.Warn("microphone fallback", "warning", selection.Warning, "device", selection.Device.ID)
	}

	// The stream outlives ctx, which only bounds the trigger request.
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := r.startStream(streamCtx, selection.Device)
	if err != nil {
		cancel()
		return classify("start recording", err)
	}

	r.stream = stream
	r.cancel = cancel
	r.device = selection.Device
	r.startedAt = r.now()
	r.logger.Debug("recording started", "device", selection.Device.ID)
	return nil
}

// Stop closes the stream and writes the staged WAV file.
func (r *Recorder) Stop(_ context.Context) (interaction.RecordingHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stream := r.stream
	if stream == nil {
		return interaction.RecordingHandle{}, failure.Capture("stop recording", ErrNotRecording)
	}
	r.stream = nil
	defer r.cancel()

	pcm, err := stream.Stop()
	if err != nil {
		return interaction.RecordingHandle{}, classify("stop recording", err)
	}
	stoppedAt := r.now()
	if len(pcm) == 0 {
		return interaction.RecordingHandle{}, failure.Capture("stop recording", ErrNoAudio)
	}

	path, err := r.stage(pcm, stoppedAt)
	if err != nil {
		return interaction.RecordingHandle{}, failure.Capture("stage recording", err)
	}

	return interaction.RecordingHandle{
		Path:      path,
		Format:    interaction.CaptureFormat,
		Device:    r.device.ID,
		Bytes:     stream.BytesCaptured(),
		StartedAt: r.startedAt,
		StoppedAt: stoppedAt,
	}, nil
}

// Cancel discards an in-progress recording. It is a no-op when idle.
func (r *Recorder) Cancel(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream == nil {
		return nil
	}
	stream := r.stream
	r.stream = nil
	defer r.cancel()

	if _, err := stream.Stop(); err != nil {
		return classify("cancel recording", err)
	}
	r.logger.Debug("recording discarded", "device", r.device.ID)
	return nil
}

// Close stops any open stream and removes the last staged file.
func (r *Recorder) Close() error {
	_ = r.Cancel(context.Background())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastPath != "" && !r.cfg.Keep {
		_ = os.Remove(r.lastPath)
		r.lastPath = ""
	}
	return nil
}

func (r *Recorder) stage(pcm []byte, at time.Time) (string, error) {
	if err := os.MkdirAll(r.cfg.Dir, 0o700); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	name := fmt.Sprintf("question-%s.wav", at.UTC().Format("20060102T150405.000000000"))
	path := filepath.Join(r.cfg.Dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	if err := WriteWAV(f, interaction.CaptureFormat, pcm); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	if r.lastPath != "" && r.lastPath != path && !r.cfg.Keep {
		if err := os.Remove(r.lastPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("remove superseded recording", "path", r.lastPath, "error", err.Error())
		}
	}
	r.lastPath = path
	return path, nil
}

// classify maps Pulse access errors to permission failures and the rest to capture failures.
func classify(op string, err error) error {
	var classified *failure.Error
	if errors.As(err, &classified) {
		return err
	}
	if errors.Is(err, os.ErrPermission) {
		return failure.Permission(op, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access denied") || strings.Contains(msg, "permission") {
		return failure.Permission(op, err)
	}
	return failure.Capture(op, err)
}
