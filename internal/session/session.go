// Package session owns the single question/answer interaction and its state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/secondeye/secondeye/internal/backend"
	"github.com/secondeye/secondeye/internal/camera"
	"github.com/secondeye/secondeye/internal/failure"
	"github.com/secondeye/secondeye/internal/fsm"
	"github.com/secondeye/secondeye/internal/imaging"
	"github.com/secondeye/secondeye/internal/interaction"
	"github.com/secondeye/secondeye/internal/playback"
)

var (
	// ErrBusy is returned for triggers that arrive while an interaction is in flight.
	ErrBusy = errors.New("session busy")
	// ErrClosed is returned once Run has exited.
	ErrClosed = errors.New("session controller stopped")
)

// Deps wires the controller to hardware and the backend.
type Deps struct {
	Logger    *slog.Logger
	Recorder  Recorder
	Camera    Camera
	Backend   Backend
	Player    Player
	Indicator Indicator
	Observer  Observer
	// OnResult receives every finished interaction on the controller goroutine.
	OnResult func(Result)
}

// Options controls per-interaction policy.
type Options struct {
	Image imaging.Options
	// MaxSearchDuration is sent when positive.
	MaxSearchDuration int
}

type eventKind int

const (
	evTrigger eventKind = iota + 1
	evCancel
	evCaptured
	evResponded
	evFinished
)

type reply struct {
	state fsm.State
	err   error
}

type event struct {
	kind   eventKind
	id     string
	source Source
	reply  chan reply

	frame    interaction.CapturedFrame
	response interaction.Response
	audio    []byte
	latency  time.Duration
	err      error
}

// run is the in-flight interaction. It is only touched by the Run goroutine.
type run struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	result Result
	handle interaction.RecordingHandle
}

// Controller serializes every state mutation onto its Run goroutine.
type Controller struct {
	logger    *slog.Logger
	recorder  Recorder
	camera    Camera
	backend   Backend
	player    Player
	indicator Indicator
	observer  Observer
	onResult  func(Result)
	opts      Options

	events  chan event
	stopped chan struct{}
	once    sync.Once

	now   func() time.Time
	newID func() string

	mu       sync.RWMutex
	snapshot Snapshot

	subMu sync.Mutex
	subs  map[chan Snapshot]struct{}

	current *run
}

// NewController constructs a controller in idle with safe default fallbacks.
func NewController(deps Deps, opts Options) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	if deps.Observer == nil {
		deps.Observer = noopObserver{}
	}
	if deps.OnResult == nil {
		deps.OnResult = func(Result) {}
	}

	c := &Controller{
		logger:    deps.Logger,
		recorder:  deps.Recorder,
		camera:    deps.Camera,
		backend:   deps.Backend,
		player:    deps.Player,
		indicator: deps.Indicator,
		observer:  deps.Observer,
		onResult:  deps.OnResult,
		opts:      opts,
		events:    make(chan event),
		stopped:   make(chan struct{}),
		now:       time.Now,
		newID:     uuid.NewString,
		subs:      make(map[chan Snapshot]struct{}),
	}
	c.snapshot = Snapshot{State: fsm.StateIdle, Since: c.now()}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.State
}

// Snapshot returns the current observer view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Subscribe returns a channel of state changes and a function releasing it.
// Slow subscribers miss intermediate snapshots rather than block the session.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)
	c.subMu.Lock()
	c.subs[ch] = struct{}{}
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, ch)
			c.subMu.Unlock()
		})
	}
}

// Run processes events until ctx is cancelled. It must be called exactly once.
func (c *Controller) Run(ctx context.Context) error {
	defer c.once.Do(func() { close(c.stopped) })

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case ev := <-c.events:
			c.dispatch(ctx, ev)
		}
	}
}

// Trigger starts recording from idle or stops it from recording. Any other
// state rejects the trigger with ErrBusy. The returned state is the one
// reached after handling.
func (c *Controller) Trigger(ctx context.Context, source Source) (fsm.State, error) {
	return c.request(ctx, event{kind: evTrigger, source: source})
}

// Cancel discards an in-progress recording or interrupts playback.
func (c *Controller) Cancel(ctx context.Context) (fsm.State, error) {
	return c.request(ctx, event{kind: evCancel})
}

func (c *Controller) request(ctx context.Context, ev event) (fsm.State, error) {
	ev.reply = make(chan reply, 1)
	select {
	case c.events <- ev:
	case <-ctx.Done():
		return c.State(), ctx.Err()
	case <-c.stopped:
		return c.State(), ErrClosed
	}

	select {
	case r := <-ev.reply:
		return r.state, r.err
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}
}

// post delivers a background completion to the Run goroutine.
func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.stopped:
	}
}

func (c *Controller) dispatch(ctx context.Context, ev event) {
	switch ev.kind {
	case evTrigger:
		err := c.handleTrigger(ctx, ev.source)
		ev.reply <- reply{state: c.State(), err: err}
	case evCancel:
		err := c.handleCancel(ctx)
		ev.reply <- reply{state: c.State(), err: err}
	case evCaptured:
		if c.stale(ev, fsm.StateAwaitingCapture) {
			return
		}
		c.handleCaptured(ev)
	case evResponded:
		if c.stale(ev, fsm.StateUploading) {
			return
		}
		c.handleResponded(ev)
	case evFinished:
		if c.stale(ev, fsm.StatePlaying) {
			return
		}
		c.handleFinished(ev)
	}
}

// stale reports whether a background completion no longer matches the session.
func (c *Controller) stale(ev event, want fsm.State) bool {
	if c.current != nil && c.current.id == ev.id && c.State() == want {
		return false
	}
	c.logger.Debug("dropping stale session event", "interaction_id", ev.id, "kind", int(ev.kind), "state", string(c.State()))
	return true
}

func (c *Controller) handleTrigger(ctx context.Context, source Source) error {
	state := c.State()
	switch state {
	case fsm.StateIdle:
		return c.startRecording(ctx, source)
	case fsm.StateRecording:
		return c.stopRecording(ctx)
	default:
		c.observer.ObserveIgnoredTrigger(string(source), string(state))
		c.logger.Debug("trigger ignored", "source", string(source), "state", string(state))
		return fmt.Errorf("%w: %s", ErrBusy, state)
	}
}

func (c *Controller) startRecording(ctx context.Context, source Source) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.current = &run{
		id:     c.newID(),
		ctx:    runCtx,
		cancel: cancel,
		result: Result{Source: source, StartedAt: c.now()},
	}
	c.current.result.ID = c.current.id

	if err := c.transition(fsm.EventTrigger); err != nil {
		c.fail(err)
		return err
	}
	c.indicator.ShowRecording(runCtx)

	if err := c.recorder.Start(runCtx); err != nil {
		c.fail(err)
		return err
	}
	c.logger.Info("recording started", "interaction_id", c.current.id, "source", string(source))
	return nil
}

func (c *Controller) stopRecording(ctx context.Context) error {
	cur := c.current
	handle, err := c.recorder.Stop(ctx)
	c.indicator.CueStop(cur.ctx)
	if err != nil {
		c.fail(err)
		return err
	}
	cur.handle = handle
	cur.result.AudioDevice = handle.Device
	cur.result.BytesCaptured = handle.Bytes
	cur.result.Recording = handle.Duration()

	if err := c.transition(fsm.EventStop); err != nil {
		c.fail(err)
		return err
	}
	c.indicator.ShowProcessing(cur.ctx)

	id := cur.id
	go func() {
		var res camera.Result
		select {
		case r, ok := <-c.camera.Capture(cur.ctx):
			if !ok {
				r.Err = failure.Capture("capture photo", errors.New("camera returned no result"))
			}
			res = r
		case <-cur.ctx.Done():
			return
		}
		c.post(event{kind: evCaptured, id: id, frame: res.Frame, err: res.Err})
	}()
	return nil
}

func (c *Controller) handleCaptured(ev event) {
	if ev.err != nil {
		c.fail(ev.err)
		return
	}
	if err := c.transition(fsm.EventCaptured); err != nil {
		c.fail(err)
		return
	}

	cur := c.current
	handle := cur.handle
	go func() {
		start := c.now()
		resp, audio, err := c.exchange(cur.ctx, cur.id, handle, ev.frame)
		latency := c.now().Sub(start)
		c.observer.ObserveUpload(latency, err)
		c.post(event{kind: evResponded, id: cur.id, response: resp, audio: audio, latency: latency, err: err})
	}()
}

// exchange prepares the request, uploads it, and resolves the answer audio.
func (c *Controller) exchange(
	ctx context.Context,
	id string,
	handle interaction.RecordingHandle,
	frame interaction.CapturedFrame,
) (interaction.Response, []byte, error) {
	frame, err := imaging.EncodeFrame(frame, c.opts.Image)
	if err != nil {
		return interaction.Response{}, nil, failure.Encoding("prepare photo", err)
	}
	c.logger.Debug("photo prepared",
		"interaction_id", id,
		"raw_width", frame.Width,
		"raw_height", frame.Height,
		"encoded_bytes", len(frame.Encoded),
	)

	audio, err := os.ReadFile(handle.Path)
	if err != nil {
		return interaction.Response{}, nil, failure.Encoding("read recording", err)
	}

	req := interaction.Request{ID: id, Audio: audio, Image: frame.Encoded}
	if c.opts.MaxSearchDuration > 0 {
		limit := c.opts.MaxSearchDuration
		req.MaxSearchDuration = &limit
	}

	ctx = backend.WithRequestID(ctx, id)
	resp, err := c.backend.Upload(ctx, req)
	if err != nil {
		return interaction.Response{}, nil, err
	}
	answer, err := c.backend.ResolveAudio(ctx, resp)
	if err != nil {
		return interaction.Response{}, nil, err
	}
	return resp, answer, nil
}

func (c *Controller) handleResponded(ev event) {
	cur := c.current
	cur.result.UploadLatency = ev.latency
	if ev.err != nil {
		c.fail(ev.err)
		return
	}
	if err := c.transition(fsm.EventResponded); err != nil {
		c.fail(err)
		return
	}

	resp := ev.response
	cur.result.Response = &resp
	c.logger.Info("answer received",
		"interaction_id", cur.id,
		"intent", string(resp.Intent),
		"action_taken", string(resp.ActionTaken),
		"target_object", resp.Target(),
	)
	c.indicator.ShowAnswer(cur.ctx, resp.ResponseText)

	done := c.player.Play(cur.ctx, ev.audio, resp.AudioFormat)
	id := cur.id
	go func() {
		err, ok := <-done
		if !ok {
			err = nil
		}
		c.post(event{kind: evFinished, id: id, err: err})
	}()
}

func (c *Controller) handleFinished(ev event) {
	cur := c.current
	if ev.err != nil && !errors.Is(ev.err, playback.ErrStopped) {
		cur.result.PlaybackErr = ev.err
		c.logger.Warn("playback failed", "interaction_id", cur.id, "error", ev.err.Error())
	}
	if err := c.transition(fsm.EventFinished); err != nil {
		c.fail(err)
		return
	}
	c.indicator.CueComplete(cur.ctx)
	c.indicator.Hide(cur.ctx)
	c.finish()
}

func (c *Controller) handleCancel(ctx context.Context) error {
	state := c.State()
	switch state {
	case fsm.StateRecording:
		cur := c.current
		if err := c.recorder.Cancel(ctx); err != nil {
			c.logger.Warn("discard recording", "interaction_id", cur.id, "error", err.Error())
		}
		c.indicator.CueCancel(cur.ctx)
		if err := c.transition(fsm.EventCancel); err != nil {
			c.fail(err)
			return err
		}
		c.indicator.Hide(cur.ctx)
		cur.result.Cancelled = true
		c.finish()
		return nil
	case fsm.StatePlaying:
		// The player reports ErrStopped and the finished event returns to idle.
		c.player.Stop()
		return nil
	default:
		return fmt.Errorf("cannot cancel from state %s", state)
	}
}

// fail surfaces err to the user and unwinds through failed back to idle.
func (c *Controller) fail(err error) {
	message := failure.UserMessage(err)
	c.mu.Lock()
	c.snapshot.Reason = message
	c.mu.Unlock()

	if transErr := c.transition(fsm.EventFail); transErr != nil {
		c.logger.Error("fail transition rejected", "error", transErr.Error())
	}
	if c.current != nil {
		c.current.result.Err = err
		c.current.cancel()
	}
	c.indicator.ShowError(context.Background(), message)
	if resetErr := c.transition(fsm.EventReset); resetErr != nil {
		c.logger.Error("reset transition rejected", "error", resetErr.Error())
	}
	c.finish()
}

// finish reports the current interaction and forgets it.
func (c *Controller) finish() {
	cur := c.current
	if cur == nil {
		return
	}
	c.current = nil
	cur.cancel()

	cur.result.State = c.State()
	cur.result.FinishedAt = c.now()
	c.observer.ObserveInteraction(cur.result.Outcome(), cur.result.Kind(), cur.result.FinishedAt.Sub(cur.result.StartedAt))
	c.onResult(cur.result)

	c.mu.Lock()
	c.snapshot.InteractionID = ""
	c.mu.Unlock()
}

func (c *Controller) transition(ev fsm.Event) error {
	c.mu.Lock()
	next, err := fsm.Transition(c.snapshot.State, ev)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.snapshot.State = next
	c.snapshot.Since = c.now()
	if c.current != nil {
		c.snapshot.InteractionID = c.current.id
	}
	if next == fsm.StateRecording {
		c.snapshot.Reason = ""
	}
	snap := c.snapshot
	c.mu.Unlock()

	c.observer.ObserveState(string(next))
	c.publish(snap)
	return nil
}

func (c *Controller) publish(snap Snapshot) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// shutdown abandons the in-flight interaction when Run exits.
func (c *Controller) shutdown() {
	cur := c.current
	if cur == nil {
		return
	}
	switch c.State() {
	case fsm.StateRecording:
		_ = c.recorder.Cancel(context.Background())
	case fsm.StatePlaying:
		c.player.Stop()
	}
	cur.cancel()
	c.current = nil
}
