// Package ipc carries the control protocol between the secondeye CLI and the
// running daemon: one JSON request line in, one JSON response line out.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Commands understood by the running owner.
const (
	CommandTrigger = "trigger"
	CommandStatus  = "status"
	CommandCancel  = "cancel"
)

const (
	// MaxRequestBytes bounds one request line.
	MaxRequestBytes = 512
	// maxResponseBytes bounds one response line; error text may quote a backend body.
	maxResponseBytes = 256 << 10
)

// ErrLineTooLong is returned when a peer sends more than the line limit.
var ErrLineTooLong = errors.New("message exceeds size limit")

// Request is one control command.
type Request struct {
	Command string `json:"command"`
}

// Response reports the session state after the command was applied.
type Response struct {
	OK            bool   `json:"ok"`
	State         string `json:"state,omitempty"`
	InteractionID string `json:"interaction_id,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Known reports whether command belongs to the protocol.
func Known(command string) bool {
	switch command {
	case CommandTrigger, CommandStatus, CommandCancel:
		return true
	}
	return false
}

func rejected(format string, args ...any) Response {
	return Response{OK: false, Error: fmt.Sprintf(format, args...)}
}

// readMessage decodes one newline-terminated JSON value of at most limit bytes.
func readMessage(r io.Reader, limit int, v any) error {
	line, err := bufio.NewReader(io.LimitReader(r, int64(limit)+1)).ReadBytes('\n')
	if len(line) > limit {
		return ErrLineTooLong
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(line, v)
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func writeMessage(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(payload, '\n'))
	return err
}
