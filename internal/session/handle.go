package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/secondeye/secondeye/internal/failure"
	"github.com/secondeye/secondeye/internal/fsm"
	"github.com/secondeye/secondeye/internal/ipc"
)

// Handle serves IPC commands for the running owner. Every response carries
// the state the command left behind and the id of the interaction in flight.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	var (
		message string
		err     error
	)
	switch req.Command {
	case ipc.CommandStatus:
		message = "status"
		if reason := c.Snapshot().Reason; reason != "" {
			message = "last error: " + reason
		}
	case ipc.CommandTrigger:
		var state fsm.State
		if state, err = c.Trigger(ctx, SourceIPC); err == nil {
			message = triggerMessage(state)
		} else {
			err = errors.New(triggerError(err))
		}
	case ipc.CommandCancel:
		if _, err = c.Cancel(ctx); err == nil {
			message = "cancel requested"
		}
	default:
		err = fmt.Errorf("unknown command: %s", req.Command)
	}

	snap := c.Snapshot()
	resp := ipc.Response{OK: err == nil, State: string(snap.State), InteractionID: snap.InteractionID, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func triggerMessage(state fsm.State) string {
	switch state {
	case fsm.StateRecording:
		return "recording started"
	case fsm.StateAwaitingCapture, fsm.StateUploading:
		return "recording stopped; asking"
	default:
		return "trigger accepted"
	}
}

func triggerError(err error) string {
	if errors.Is(err, ErrBusy) {
		return err.Error()
	}
	return failure.UserMessage(err)
}
