package session

import (
	"context"
	"time"

	"github.com/secondeye/secondeye/internal/camera"
	"github.com/secondeye/secondeye/internal/interaction"
)

// Recorder captures the spoken question.
type Recorder interface {
	Start(context.Context) error
	Stop(context.Context) (interaction.RecordingHandle, error)
	Cancel(context.Context) error
}

// Camera grabs one still frame. The channel yields exactly one result.
type Camera interface {
	Capture(context.Context) <-chan camera.Result
}

// Backend uploads a request and resolves the answer audio.
type Backend interface {
	Upload(context.Context, interaction.Request) (interaction.Response, error)
	ResolveAudio(context.Context, interaction.Response) ([]byte, error)
}

// Player plays answer audio. The channel yields exactly one terminal value.
type Player interface {
	Play(ctx context.Context, audio []byte, format string) <-chan error
	Stop()
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowProcessing(context.Context)
	ShowAnswer(context.Context, string)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// Observer receives lifecycle measurements.
type Observer interface {
	ObserveState(state string)
	ObserveInteraction(outcome, kind string, elapsed time.Duration)
	ObserveUpload(elapsed time.Duration, err error)
	ObserveIgnoredTrigger(source, state string)
}

type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)      {}
func (noopIndicator) ShowProcessing(context.Context)     {}
func (noopIndicator) ShowAnswer(context.Context, string) {}
func (noopIndicator) ShowError(context.Context, string)  {}
func (noopIndicator) CueStop(context.Context)            {}
func (noopIndicator) CueComplete(context.Context)        {}
func (noopIndicator) CueCancel(context.Context)          {}
func (noopIndicator) Hide(context.Context)               {}

type noopObserver struct{}

func (noopObserver) ObserveState(string)                              {}
func (noopObserver) ObserveInteraction(string, string, time.Duration) {}
func (noopObserver) ObserveUpload(time.Duration, error)               {}
func (noopObserver) ObserveIgnoredTrigger(string, string)             {}
