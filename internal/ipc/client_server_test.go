package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ownerSocket starts a Server for handler on a fresh socket and stops it on cleanup.
func ownerSocket(t *testing.T, handler HandlerFunc) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "owner.sock")
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		server := &Server{Handler: handler, ReadTimeout: 200 * time.Millisecond}
		done <- server.Serve(ctx, listener)
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return path
}

// rawExchange writes payload verbatim and decodes the single reply line.
func rawExchange(t *testing.T, path, payload string) Response {
	t.Helper()

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(time.Second)))

	_, err = conn.Write([]byte(payload))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	return resp
}

func TestSendReturnsSessionStateAndInteractionID(t *testing.T) {
	path := ownerSocket(t, func(_ context.Context, req Request) Response {
		require.Equal(t, CommandTrigger, req.Command)
		return Response{OK: true, State: "recording", InteractionID: "7f0c", Message: "recording started"}
	})

	resp, err := Send(context.Background(), path, Request{Command: CommandTrigger}, 300*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, Response{OK: true, State: "recording", InteractionID: "7f0c", Message: "recording started"}, resp)
}

func TestServerRejectsUnknownCommandWithoutDispatch(t *testing.T) {
	var calls atomic.Int32
	path := ownerSocket(t, func(context.Context, Request) Response {
		calls.Add(1)
		return Response{OK: true}
	})

	resp := rawExchange(t, path, `{"command":"reboot"}`+"\n")
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, `unknown command: "reboot"`)
	require.Zero(t, calls.Load())
}

func TestServerRejectsMalformedAndOversizedRequests(t *testing.T) {
	var calls atomic.Int32
	path := ownerSocket(t, func(context.Context, Request) Response {
		calls.Add(1)
		return Response{OK: true}
	})

	garbled := rawExchange(t, path, "trigger please\n")
	require.False(t, garbled.OK)
	require.Contains(t, garbled.Error, "decode request")

	padded := `{"command":"trigger","pad":"` + strings.Repeat("x", MaxRequestBytes) + `"}` + "\n"
	oversized := rawExchange(t, path, padded)
	require.False(t, oversized.OK)
	require.Contains(t, oversized.Error, "size limit")

	require.Zero(t, calls.Load())
}

func TestServerTimesOutSilentClient(t *testing.T) {
	path := ownerSocket(t, func(context.Context, Request) Response { return Response{OK: true} })

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "read request")
}

func TestSendReportsBrokenOwners(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.sock")
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	replies := make(chan string, 2)
	replies <- "<<not json>>\n"
	replies <- ""
	go func() {
		for reply := range replies {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_, _ = bufio.NewReader(conn).ReadBytes('\n')
			if reply != "" {
				_, _ = conn.Write([]byte(reply))
			}
			_ = conn.Close()
		}
	}()

	_, err = Send(context.Background(), path, Request{Command: CommandStatus}, 300*time.Millisecond)
	require.ErrorContains(t, err, "decode response")

	_, err = Send(context.Background(), path, Request{Command: CommandStatus}, 300*time.Millisecond)
	require.ErrorContains(t, err, "read response")
	close(replies)
}

func TestAliveDistinguishesLiveAndDeadOwners(t *testing.T) {
	live := ownerSocket(t, func(context.Context, Request) Response { return Response{OK: true, State: "idle"} })
	alive, err := Alive(context.Background(), live, 300*time.Millisecond)
	require.NoError(t, err)
	require.True(t, alive)

	alive, err = Alive(context.Background(), filepath.Join(t.TempDir(), "absent.sock"), 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, alive)
}

func TestCallMapsRejectionAndMissingOwner(t *testing.T) {
	path := ownerSocket(t, func(_ context.Context, req Request) Response {
		if req.Command == CommandCancel {
			return Response{OK: false, State: "uploading", Error: "cannot cancel from state uploading"}
		}
		return Response{OK: false, State: "playing"}
	})

	resp, err := Call(context.Background(), path, CommandCancel, 300*time.Millisecond)
	require.ErrorContains(t, err, "cancel: cannot cancel from state uploading")
	require.Equal(t, "uploading", resp.State)

	_, err = Call(context.Background(), path, CommandTrigger, 300*time.Millisecond)
	require.ErrorContains(t, err, "trigger: request rejected")

	_, err = Call(context.Background(), filepath.Join(t.TempDir(), "nobody.sock"), CommandStatus, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNotRunning)
}
