package indicator

import (
	"context"
	"math"
	"sync"

	"github.com/secondeye/secondeye/internal/playback"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
	cueError
)

const (
	cueSampleRate = 16000
	cueVolume     = 0.18
	// fadeMS shapes both ends of every note so cues start and stop without clicks.
	fadeMS = 5
)

// note is one tone in a cue; a zero hz note is silence.
type note struct {
	hz float64
	ms int
}

type cue struct {
	name  string
	notes []note
	// gain scales cueVolume; the error cue is slightly louder.
	gain float64
}

var cues = map[cueKind]cue{
	cueStart:    {name: "start", gain: 1, notes: []note{{880, 70}, {0, 22}, {1175, 70}}},
	cueStop:     {name: "stop", gain: 1, notes: []note{{620, 120}}},
	cueComplete: {name: "complete", gain: 1, notes: []note{{740, 65}, {0, 22}, {988, 90}}},
	cueCancel:   {name: "cancel", gain: 1, notes: []note{{480, 75}, {0, 22}, {360, 90}}},
	cueError:    {name: "error", gain: 1.1, notes: []note{{330, 110}, {0, 22}, {330, 110}}},
}

var (
	renderOnce sync.Once
	rendered   map[cueKind][]int16
)

func (k cueKind) String() string {
	if c, ok := cues[k]; ok {
		return c.name
	}
	return "unknown"
}

// cueSamples returns the rendered PCM for kind, or nil for an unknown kind.
// Cues are rendered once on first use.
func cueSamples(kind cueKind) []int16 {
	renderOnce.Do(func() {
		rendered = make(map[cueKind][]int16, len(cues))
		for kind, c := range cues {
			rendered[kind] = c.render()
		}
	})
	return rendered[kind]
}

// emitCue plays one cue through sink and blocks until it drains.
func emitCue(ctx context.Context, sink playback.Sink, kind cueKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return sink.Play(ctx, playback.PCM{Samples: samples, SampleRate: cueSampleRate, Channels: 1})
}

func (c cue) render() []int16 {
	total := 0
	for _, n := range c.notes {
		total += msToSamples(n.ms)
	}
	pcm := make([]int16, 0, total)
	for _, n := range c.notes {
		pcm = append(pcm, n.render(cueVolume*c.gain)...)
	}
	return pcm
}

// render synthesizes a sine with raised-cosine fades at both ends.
func (n note) render(volume float64) []int16 {
	count := msToSamples(n.ms)
	pcm := make([]int16, count)
	if n.hz <= 0 || volume <= 0 {
		return pcm
	}

	fade := max(min(msToSamples(fadeMS), count/2), 1)
	step := 2 * math.Pi * n.hz / cueSampleRate
	for i := range pcm {
		gain := 1.0
		if edge := min(i, count-1-i); edge < fade {
			gain = 0.5 - 0.5*math.Cos(math.Pi*float64(edge)/float64(fade))
		}
		pcm[i] = int16(math.Round(math.Sin(step*float64(i)) * volume * gain * math.MaxInt16))
	}
	return pcm
}

func msToSamples(ms int) int {
	return max(ms, 0) * cueSampleRate / 1000
}
