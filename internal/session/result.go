package session

import (
	"time"

	"github.com/secondeye/secondeye/internal/failure"
	"github.com/secondeye/secondeye/internal/fsm"
	"github.com/secondeye/secondeye/internal/interaction"
)

// Source names what produced a trigger.
type Source string

const (
	SourceIPC    Source = "ipc"
	SourceButton Source = "button"
)

// Outcome labels how an interaction ended.
const (
	OutcomeAnswered  = "answered"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Result is the complete record of one interaction, reported once it reaches idle.
type Result struct {
	ID            string
	Source        Source
	State         fsm.State
	Cancelled     bool
	Err           error
	Response      *interaction.Response
	PlaybackErr   error
	AudioDevice   string
	BytesCaptured int64
	Recording     time.Duration
	UploadLatency time.Duration
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Outcome returns answered, failed, or cancelled.
func (r Result) Outcome() string {
	switch {
	case r.Cancelled:
		return OutcomeCancelled
	case r.Err != nil:
		return OutcomeFailed
	default:
		return OutcomeAnswered
	}
}

// Kind is the failure kind for failed results and the intent otherwise.
func (r Result) Kind() string {
	if r.Err != nil {
		if kind := failure.KindOf(r.Err); kind != "" {
			return string(kind)
		}
		return "internal"
	}
	if r.Response != nil && r.Response.Intent != "" {
		return string(r.Response.Intent)
	}
	return "none"
}

// Snapshot is what observers see of the session.
type Snapshot struct {
	State         fsm.State
	InteractionID string
	// Reason is the user message of the most recent failure, kept after reset.
	Reason string
	Since  time.Time
}
