package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// ErrNotRunning is returned by Call when no owner is listening.
var ErrNotRunning = errors.New("secondeye daemon not running")

// Send performs one request/response exchange bounded by timeout.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := writeMessage(conn, req); err != nil {
		return Response{}, fmt.Errorf("send %s: %w", req.Command, err)
	}

	var resp Response
	if err := readMessage(conn, maxResponseBytes, &resp); err != nil {
		if isDecodeError(err) {
			return Response{}, fmt.Errorf("decode response: %w", err)
		}
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// Alive reports whether a live owner answers status on path. A socket file
// with nobody behind it is not an error.
func Alive(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	switch {
	case err == nil:
		return true, nil
	case noListener(err):
		return false, nil
	default:
		return false, fmt.Errorf("check socket: %w", err)
	}
}

// Call sends command and turns a rejected response into an error. The
// response is returned either way so callers can report the session state.
func Call(ctx context.Context, path string, command string, timeout time.Duration) (Response, error) {
	resp, err := Send(ctx, path, Request{Command: command}, timeout)
	if err != nil {
		if noListener(err) {
			return Response{}, fmt.Errorf("%w: is `secondeye run` active?", ErrNotRunning)
		}
		return Response{}, err
	}
	if resp.OK {
		return resp, nil
	}
	reason := resp.Error
	if reason == "" {
		reason = "request rejected"
	}
	return resp, fmt.Errorf("%s: %s", command, reason)
}

// noListener matches dial failures meaning nothing owns the socket.
func noListener(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED)
}
