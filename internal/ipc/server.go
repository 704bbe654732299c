package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// DefaultReadTimeout bounds how long a client may take to send its command.
const DefaultReadTimeout = 2 * time.Second

// Handler applies one control command to the session.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Server answers control commands on a unix listener.
type Server struct {
	Handler     Handler
	Logger      *slog.Logger
	ReadTimeout time.Duration
}

// Serve accepts clients until ctx is done or the listener is closed.
// In-flight commands finish before Serve returns.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	var conns sync.WaitGroup
	defer conns.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}
		conns.Add(1)
		go func() {
			defer conns.Done()
			defer conn.Close()
			s.answer(ctx, conn)
		}()
	}
}

func (s *Server) answer(ctx context.Context, conn net.Conn) {
	started := time.Now()
	_ = conn.SetReadDeadline(started.Add(s.readTimeout()))

	resp := s.dispatch(ctx, conn)
	if err := writeMessage(conn, resp); err != nil {
		s.logger().Debug("control reply dropped", "error", err.Error())
	}
}

func (s *Server) dispatch(ctx context.Context, conn net.Conn) Response {
	var req Request
	err := readMessage(conn, MaxRequestBytes, &req)
	switch {
	case errors.Is(err, ErrLineTooLong):
		return rejected("read request: %v (limit %d bytes)", err, MaxRequestBytes)
	case err != nil && isDecodeError(err):
		return rejected("decode request: %v", err)
	case err != nil:
		return rejected("read request: %v", err)
	case !Known(req.Command):
		return rejected("unknown command: %q", req.Command)
	}

	began := time.Now()
	resp := s.Handler.Handle(ctx, req)
	s.logger().Debug("control command",
		"command", req.Command,
		"ok", resp.OK,
		"state", resp.State,
		"interaction_id", resp.InteractionID,
		"duration_ms", time.Since(began).Milliseconds(),
	)
	return resp
}

func (s *Server) readTimeout() time.Duration {
	if s.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return s.ReadTimeout
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}
