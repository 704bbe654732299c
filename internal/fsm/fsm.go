// Package fsm holds the pure interaction lifecycle transition table.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle            State = "idle"
	StateRecording       State = "recording"
	StateAwaitingCapture State = "awaiting_capture"
	StateUploading       State = "uploading"
	StatePlaying         State = "playing"
	StateFailed          State = "failed"
)

const (
	EventTrigger   Event = "trigger"
	EventStop      Event = "stop"
	EventCancel    Event = "cancel"
	EventCaptured  Event = "captured"
	EventResponded Event = "responded"
	EventFinished  Event = "finished"
	EventFail      Event = "fail"
	EventReset     Event = "reset"
)

// Transition returns the state reached by applying event to current.
// On an invalid pair the current state is returned with an error.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		if !Known(current) {
			return current, fmt.Errorf("unknown state %q", current)
		}
		return StateFailed, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventTrigger:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateAwaitingCapture, nil
		case EventCancel:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaitingCapture:
		switch event {
		case EventCaptured:
			return StateUploading, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateUploading:
		switch event {
		case EventResponded:
			return StatePlaying, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePlaying:
		switch event {
		case EventFinished:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateFailed:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Known reports whether s is one of the lifecycle states.
func Known(s State) bool {
	switch s {
	case StateIdle, StateRecording, StateAwaitingCapture, StateUploading, StatePlaying, StateFailed:
		return true
	default:
		return false
	}
}

// AcceptsTrigger reports whether a user trigger may act in state s.
// Every other state rejects triggers instead of queuing them.
func AcceptsTrigger(s State) bool {
	return s == StateIdle || s == StateRecording
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
