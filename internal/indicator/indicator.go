// Package indicator surfaces session state as desktop notifications and audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/secondeye/secondeye/internal/config"
	"github.com/secondeye/secondeye/internal/playback"
)

const (
	persistentTimeoutMS   = 300000
	defaultErrorTimeoutMS = 4000
	answerTimeoutMS       = 15000
	maxAnswerRunes        = 280
	dispatchTimeout       = 400 * time.Millisecond
	cueTimeout            = 4 * time.Second
	defaultDesktopAppName = "secondeye"
	defaultCueMediaName   = "secondeye cue"

	categoryStatus = "x-secondeye.status"
	categoryAnswer = "x-secondeye.answer"
	categoryError  = "x-secondeye.error"
)

// Notifier routes indicator output through freedesktop notifications and
// plays short synthesized cues on the default sink.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	sink     playback.Sink

	mu             sync.Mutex
	notificationID uint32

	soundMu sync.Mutex
	cues    sync.WaitGroup
}

// NewNotifier creates an indicator from config.
func NewNotifier(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		sink:     playback.PulseSink{MediaName: defaultCueMediaName},
	}
}

// ShowRecording signals recording start and emits the start cue.
func (n *Notifier) ShowRecording(ctx context.Context) {
	n.playCue(cueStart)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, notification{
			Summary:   n.messages.recording,
			Urgency:   urgencyLow,
			Category:  categoryStatus,
			TimeoutMS: persistentTimeoutMS,
		})
	})
}

// ShowProcessing signals that the question is being answered.
func (n *Notifier) ShowProcessing(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, notification{
			Summary:   n.messages.processing,
			Urgency:   urgencyLow,
			Category:  categoryStatus,
			TimeoutMS: persistentTimeoutMS,
		})
	})
}

// ShowAnswer displays the answer text alongside spoken playback.
func (n *Notifier) ShowAnswer(ctx context.Context, text string) {
	if !n.cfg.Enable {
		return
	}
	text = truncateRunes(strings.TrimSpace(text), maxAnswerRunes)
	if text == "" {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, notification{
			Summary:   n.messages.answer,
			Body:      text,
			Urgency:   urgencyNormal,
			Category:  categoryAnswer,
			TimeoutMS: answerTimeoutMS,
		})
	})
}

// ShowError displays an error message and emits the error cue.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.playCue(cueError)
	if !n.cfg.Enable {
		return
	}
	if strings.TrimSpace(text) == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = defaultErrorTimeoutMS
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, notification{
			Summary:   text,
			Urgency:   urgencyCritical,
			Category:  categoryError,
			TimeoutMS: timeout,
		})
	})
}

// CueStop emits the stop cue.
func (n *Notifier) CueStop(context.Context) {
	n.playCue(cueStop)
}

// CueComplete emits the answer-finished cue.
func (n *Notifier) CueComplete(context.Context) {
	n.playCue(cueComplete)
}

// CueCancel emits the cancel cue.
func (n *Notifier) CueCancel(context.Context) {
	n.playCue(cueCancel)
}

// Hide dismisses the active notification.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// Close waits for queued cues to finish.
func (n *Notifier) Close() {
	n.cues.Wait()
}

// notify replaces the current notification, if any, and keeps the new ID.
func (n *Notifier) notify(ctx context.Context, note notification) error {
	n.mu.Lock()
	note.ReplaceID = n.notificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = defaultDesktopAppName
	}

	id, err := desktopNotify(ctx, appName, note)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.notificationID = id
	n.mu.Unlock()
	return nil
}

// dismiss closes the current notification ID when present.
func (n *Notifier) dismiss(ctx context.Context) error {
	n.mu.Lock()
	id := n.notificationID
	n.notificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.cues.Add(1)
	go func() {
		defer n.cues.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), cueTimeout)
		defer cancel()
		if err := emitCue(ctx, n.sink, kind); err != nil {
			n.log("indicator audio cue failed", err, "cue", kind.String())
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error, attrs ...any) {
	if err == nil {
		return
	}
	n.logger.Debug(message, append([]any{"error", err.Error()}, attrs...)...)
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
