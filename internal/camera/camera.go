// Package camera grabs a single still frame by running an external capture command.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/secondeye/secondeye/internal/failure"
	"github.com/secondeye/secondeye/internal/interaction"
)

// DefaultTimeout bounds one capture command run.
const DefaultTimeout = 5 * time.Second

// ErrEmptyFrame is returned when the command exits cleanly without output.
var ErrEmptyFrame = errors.New("capture command produced no image data")

// Config controls the capture command.
type Config struct {
	// Argv runs the capture tool; it must write one JPEG or PNG image to stdout.
	Argv    []string
	Timeout time.Duration
	// KeepDir, when set, receives a copy of every raw frame.
	KeepDir string
	Logger  *slog.Logger
}

// Result is delivered exactly once per Capture call.
type Result struct {
	Frame interaction.CapturedFrame
	Err   error
}

// Camera runs the configured capture command.
type Camera struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Camera for cfg.
func New(cfg Config) *Camera {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Camera{cfg: cfg, logger: logger, now: time.Now}
}

// Capture starts one photo capture and returns a channel that yields its result.
func (c *Camera) Capture(ctx context.Context) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		frame, err := c.CaptureFrame(ctx)
		out <- Result{Frame: frame, Err: err}
	}()
	return out
}

// CaptureFrame runs the capture command synchronously.
func (c *Camera) CaptureFrame(ctx context.Context) (interaction.CapturedFrame, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	raw, err := runCapture(runCtx, c.cfg.Argv)
	if err != nil {
		return interaction.CapturedFrame{}, classify(err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return interaction.CapturedFrame{}, failure.Capture("capture photo", fmt.Errorf("unrecognized image data: %w", err))
	}

	frame := interaction.CapturedFrame{
		Raw:        raw,
		RawFormat:  format,
		Width:      cfg.Width,
		Height:     cfg.Height,
		CapturedAt: c.now(),
	}
	c.keep(frame)
	return frame, nil
}

func (c *Camera) keep(frame interaction.CapturedFrame) {
	if c.cfg.KeepDir == "" {
		return
	}
	if err := os.MkdirAll(c.cfg.KeepDir, 0o700); err != nil {
		c.logger.Warn("keep frame", "error", err.Error())
		return
	}
	name := fmt.Sprintf("frame-%s.%s", frame.CapturedAt.UTC().Format("20060102T150405.000"), frame.RawFormat)
	if err := os.WriteFile(filepath.Join(c.cfg.KeepDir, name), frame.Raw, 0o600); err != nil {
		c.logger.Warn("keep frame", "error", err.Error())
	}
}

// runCapture executes argv and returns its stdout.
func runCapture(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("command argv cannot be empty")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", argv[0], ctx.Err())
		}
		if msg := lastLine(stderr.String()); msg != "" {
			return nil, fmt.Errorf("run %s: %w: %s", argv[0], err, msg)
		}
		return nil, fmt.Errorf("run %s: %w", argv[0], err)
	}
	if stdout.Len() == 0 {
		return nil, ErrEmptyFrame
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func classify(err error) error {
	if errors.Is(err, os.ErrPermission) {
		return failure.Permission("capture photo", err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission denied") || strings.Contains(msg, "operation not permitted") {
		return failure.Permission("capture photo", err)
	}
	return failure.Capture("capture photo", err)
}
