package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ErrAlreadyRunning is returned when another owner answers on the socket.
var ErrAlreadyRunning = errors.New("secondeye daemon already running")

const (
	// SocketName is the socket file created under XDG_RUNTIME_DIR.
	SocketName = "secondeye.sock"
	// SocketEnv overrides the socket location, e.g. for a second device profile.
	SocketEnv = "SECONDEYE_SOCKET"

	reclaimBackoff = 25 * time.Millisecond
)

// RuntimeSocketPath returns $SECONDEYE_SOCKET or $XDG_RUNTIME_DIR/secondeye.sock.
func RuntimeSocketPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv(SocketEnv)); override != "" {
		return filepath.Clean(override), nil
	}
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR is not set (or set %s)", SocketEnv)
	}
	return filepath.Join(runtimeDir, SocketName), nil
}

// Acquire makes the caller the single session owner by listening on path.
// A socket left behind by a dead owner is removed and the listen retried up
// to retries times; a live owner yields ErrAlreadyRunning.
func Acquire(ctx context.Context, path string, dialTimeout time.Duration, retries int) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			if err := os.Chmod(path, 0o600); err != nil {
				_ = listener.Close()
				return nil, fmt.Errorf("restrict socket %s: %w", path, err)
			}
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		if attempt >= retries {
			return nil, fmt.Errorf("socket %s still in use after %d retries", path, retries)
		}

		if err := reclaim(ctx, path, dialTimeout); err != nil {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * reclaimBackoff):
		}
	}
}

// reclaim removes path when it is a socket nobody answers on.
func reclaim(ctx context.Context, path string, dialTimeout time.Duration) error {
	alive, err := Alive(ctx, path, dialTimeout)
	if alive {
		return ErrAlreadyRunning
	}
	if err != nil {
		return fmt.Errorf("check existing socket %s: %w", path, err)
	}

	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspect %s: %w", path, err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket; refusing to remove it", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}
